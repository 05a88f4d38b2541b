package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/quantaphp/http-endpoint/app/config"
	actx "github.com/quantaphp/http-endpoint/app/context"
)

// CLI is the command line interface of the endpoint server.
type CLI struct {
	Serve   Serve   `kong:"cmd,help='Start the web server.'"`
	Routes  Routes  `kong:"cmd,help='List the web server routes.'"`
	Config  Config  `kong:"cmd,help='Manage the application configuration.'"`
	Migrate Migrate `kong:"cmd,help='Manage database migrations.'"`
	Notes   Notes   `kong:"cmd,help='Manage notes on a running server.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// Configuration is managed independently from the CLI, so kong.ConfigFlag
	// isn't used.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the configuration file.'"`
	DataDir    string           `kong:"default='${dataDir}',help='Path to the directory where data is stored.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(name, configFilePath, dataDir, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name(name),
		kong.UsageOnError(),
		kong.DefaultEnvars(envPrefix(name)),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"dataDir":    dataDir,
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// NeedsDB returns true if the executed command uses the database.
func (c *CLI) NeedsDB() bool {
	cmd := c.Command()
	return cmd == "serve" || strings.HasPrefix(cmd, "migrate")
}

// ApplyConfig applies configuration values to the CLI, but only if they weren't
// already set.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Serve.Address == "" && cfg.Server.Address.Valid {
		c.Serve.Address = cfg.Server.Address.V
	}
	if c.Notes.Address == "" && cfg.Server.Address.Valid {
		c.Notes.Address = cfg.Server.Address.V
	}
}

// envPrefix returns the prefix of environment variables that set flag values.
func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
