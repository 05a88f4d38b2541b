package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"github.com/quantaphp/http-endpoint/app/config"
	actx "github.com/quantaphp/http-endpoint/app/context"
	aerrors "github.com/quantaphp/http-endpoint/app/errors"
	"github.com/quantaphp/http-endpoint/cli"
	"github.com/quantaphp/http-endpoint/db"
)

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application. configFilePath and dataDir are the
// default locations of the configuration file and the database, which can be
// overridden via the CLI.
func New(name, configFilePath, dataDir string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Version: version,
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	app.cli, err = cli.New(name, configFilePath, dataDir, ver)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	if app.ctx.Config == nil {
		cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
		if err := cfg.Load(); err != nil {
			return aerrors.NewWithCause("failed loading configuration", err, "path", app.cli.ConfigFile)
		}
		app.ctx.Config = cfg
	}
	app.ctx.Config.SetDefaults()
	app.cli.ApplyConfig(app.ctx.Config)

	if app.cli.NeedsDB() && app.ctx.DB == nil {
		if err := app.openDB(); err != nil {
			return err
		}
		defer app.ctx.DB.Close()
	}

	if app.cli.Command() == "serve" {
		if err := app.ctx.DB.Init(app.ctx.Version.Semantic, app.ctx.Logger); err != nil {
			return aerrors.NewWithCause("failed initializing database", err)
		}
	}

	if err := app.cli.Execute(app.ctx); err != nil {
		return err
	}

	return nil
}

func (app *App) openDB() error {
	if err := app.ctx.FS.MkdirAll(app.cli.DataDir, 0o700); err != nil {
		return aerrors.NewWithCause("failed creating data directory", err, "path", app.cli.DataDir)
	}

	dbPath := filepath.Join(app.cli.DataDir, app.name+".db")
	d, err := db.Open(app.ctx.Ctx, dbPath, app.ctx.TimeNow)
	if err != nil {
		return aerrors.NewWithCause("failed opening database", err, "path", dbPath)
	}
	app.ctx.DB = d

	return nil
}
