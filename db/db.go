package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"github.com/quantaphp/http-endpoint/db/migrator"
	"github.com/quantaphp/http-endpoint/db/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps sql.DB with additional context and migration functionality.
type DB struct {
	*sql.DB
	ctx        context.Context
	timeNow    func() time.Time
	path       string
	migrations []*migrator.Migration
}

var _ types.Querier = (*DB)(nil)

// Open creates and configures a new SQLite database connection with migrations
// support. The schema isn't created until Init is called.
func Open(ctx context.Context, path string, timeNow func() time.Time) (*DB, error) {
	sqliteDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	if strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:") {
		// Keep connections around, or the in-memory database is discarded
		// once the last one is closed.
		sqliteDB.SetMaxIdleConns(10)
		sqliteDB.SetConnMaxLifetime(time.Duration(math.MaxInt64))
	}

	d := &DB{DB: sqliteDB, ctx: ctx, path: path, timeNow: timeNow}

	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed getting migrations directory: %w", err)
	}
	d.migrations, err = migrator.LoadMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Init applies all pending migrations, and records the application version the
// database was created with. It's safe to call on an initialized database.
func (d *DB) Init(appVersion string, logger *slog.Logger) error {
	dblogger := logger.With("path", d.path)
	dblogger.Debug("initializing database")

	err := migrator.RunMigrations(d, d.migrations, migrator.MigrationUp, "all", dblogger)
	if err != nil {
		return err
	}

	version, err := d.Version()
	if err != nil {
		return err
	}
	if version.Valid {
		return nil
	}

	_, err = d.ExecContext(d.NewContext(),
		`INSERT INTO _meta (version, created_at) VALUES (?, ?)`,
		appVersion, d.TimeNow().UTC())
	if err != nil {
		return fmt.Errorf("failed inserting into _meta: %w", err)
	}

	dblogger.Info("database initialized")

	return nil
}

// Migrate runs the database migrations in direction dir, until the migration
// named to is reached, or all of them if to is "all".
func (d *DB) Migrate(dir migrator.Direction, to string, logger *slog.Logger) error {
	//nolint:wrapcheck // Migration errors are descriptive enough.
	return migrator.RunMigrations(d, d.migrations, dir, to, logger.With("path", d.path))
}

// MigrationStatus returns all known migrations, and whether they're applied.
func (d *DB) MigrationStatus() ([]migrator.Status, error) {
	//nolint:wrapcheck // Migration errors are descriptive enough.
	return migrator.GetStatus(d, d.migrations)
}

// Version returns the application version the database was initialized with.
// If the returned sql.Null value is invalid, the database hasn't been
// initialized.
func (d *DB) Version() (sql.Null[string], error) {
	var version sql.Null[string]
	err := d.QueryRowContext(d.NewContext(), `SELECT version FROM _meta`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return version, fmt.Errorf("failed reading database version: %w", err)
	}

	return version, nil
}

// NewContext returns the main database context. Queries are canceled when the
// application shuts down.
func (d *DB) NewContext() context.Context {
	return d.ctx
}

// TimeNow returns the current system time.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}
