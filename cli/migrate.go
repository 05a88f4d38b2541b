package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	actx "github.com/quantaphp/http-endpoint/app/context"
	aerrors "github.com/quantaphp/http-endpoint/app/errors"
	"github.com/quantaphp/http-endpoint/db/migrator"
)

// The Migrate command applies and rolls back database migrations.
type Migrate struct {
	Up struct {
		To string `arg:"" optional:"" default:"all" help:"Name of the last migration to apply, or 'all'."`
	} `kong:"cmd,help='Apply pending migrations.'"`
	Down struct {
		To string `arg:"" help:"Name of the migration to roll back to, which stays applied, or 'all'."`
	} `kong:"cmd,help='Roll back applied migrations.'"`
	Ls struct{} `kong:"cmd,help='List migrations.'"`
}

// Run the migrate command.
func (c *Migrate) Run(kctx *kong.Context, appCtx *actx.Context) error {
	switch kctx.Selected().Name {
	case "up":
		if err := appCtx.DB.Migrate(migrator.MigrationUp, c.Up.To, appCtx.Logger); err != nil {
			return aerrors.NewWithCause("failed applying migrations", err, "to", c.Up.To)
		}
	case "down":
		if err := appCtx.DB.Migrate(migrator.MigrationDown, c.Down.To, appCtx.Logger); err != nil {
			return aerrors.NewWithCause("failed rolling back migrations", err, "to", c.Down.To)
		}
	case "ls":
		statuses, err := appCtx.DB.MigrationStatus()
		if err != nil {
			return aerrors.NewWithCause("failed listing migrations", err)
		}

		data := make([][]string, len(statuses))
		for i, s := range statuses {
			applied := "no"
			if s.Applied {
				applied = "yes"
			}
			data[i] = []string{s.String(), applied}
		}

		if err = renderTable([]string{"Migration", "Applied"}, data, appCtx.Stdout); err != nil {
			return fmt.Errorf("failed rendering migrations: %w", err)
		}
	}

	return nil
}
