package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/quantaphp/http-endpoint/app"
	actx "github.com/quantaphp/http-endpoint/app/context"
	aerrors "github.com/quantaphp/http-endpoint/app/errors"
)

const appName = "endpoint"

func main() {
	configFilePath, err := xdg.ConfigFile(filepath.Join(appName, "config.json"))
	if err != nil {
		aerrors.Log(slog.Default(), err)
		os.Exit(1)
	}
	dataDir := filepath.Join(xdg.DataHome, appName)

	a, err := app.New(appName, configFilePath, dataDir,
		app.WithEnv(osEnv{}),
		app.WithFDs(
			os.Stdin,
			colorable.NewColorable(os.Stdout),
			colorable.NewColorable(os.Stderr),
		),
		app.WithFS(osfs.New()),
		app.WithLogger(
			isatty.IsTerminal(os.Stdout.Fd()),
			isatty.IsTerminal(os.Stderr.Fd()),
		),
	)
	if err != nil {
		aerrors.Log(slog.Default(), err)
		os.Exit(1)
	}
	if err = a.Run(os.Args[1:]); err != nil {
		aerrors.Log(slog.Default(), err)
		os.Exit(1)
	}
}

type osEnv struct{}

var _ actx.Environment = &osEnv{}

func (e osEnv) Get(key string) string {
	return os.Getenv(key)
}

func (e osEnv) Set(key, val string) error {
	return os.Setenv(key, val)
}
