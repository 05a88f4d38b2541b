package migrator

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"slices"
	"strconv"

	"github.com/quantaphp/http-endpoint/db/types"
)

// Direction is the direction migrations are applied in.
type Direction string

const (
	// MigrationUp applies pending migrations.
	MigrationUp Direction = "up"
	// MigrationDown rolls back applied migrations.
	MigrationDown Direction = "down"
)

// Migration is a single schema change, with the SQL statements to apply and
// roll it back.
type Migration struct {
	ID   int
	Name string
	Up   string
	Down string
}

// String returns the migration file name prefix, e.g. "0001-notes".
func (m *Migration) String() string {
	return fmt.Sprintf("%04d-%s", m.ID, m.Name)
}

var fileRx = regexp.MustCompile(`^(\d+)-([\w-]+)\.(up|down)\.sql$`)

// LoadMigrations reads all migration files from fsys, and returns them sorted
// by ID. Every migration must have an "up" file, while "down" files are
// optional.
func LoadMigrations(fsys fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory: %w", err)
	}

	byID := map[int]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := fileRx.FindStringSubmatch(e.Name())
		if match == nil {
			return nil, fmt.Errorf("invalid migration file name '%s'", e.Name())
		}

		id, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration ID in '%s': %w", e.Name(), err)
		}

		m, ok := byID[id]
		if !ok {
			m = &Migration{ID: id, Name: match[2]}
			byID[id] = m
		} else if m.Name != match[2] {
			return nil, fmt.Errorf("conflicting names for migration %d: '%s' and '%s'", id, m.Name, match[2])
		}

		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed reading migration file '%s': %w", e.Name(), err)
		}

		if match[3] == string(MigrationUp) {
			m.Up = string(data)
		} else {
			m.Down = string(data)
		}
	}

	migrations := make([]*Migration, 0, len(byID))
	for _, m := range byID {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s is missing its up file", m)
		}
		migrations = append(migrations, m)
	}
	slices.SortFunc(migrations, func(a, b *Migration) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return migrations, nil
}

// RunMigrations applies migrations in the given direction, until the
// migration named to is reached, or all of them if to is "all". When rolling
// back, the target migration itself stays applied.
func RunMigrations(
	d types.Querier, migrations []*Migration, dir Direction, to string, logger *slog.Logger,
) error {
	ctx := d.NewContext()
	applied, err := appliedIDs(d)
	if err != nil {
		return err
	}

	plan, err := planMigrations(migrations, applied, dir, to)
	if err != nil {
		return err
	}

	for _, m := range plan {
		mlogger := logger.With("migration", m.String(), "direction", dir)
		mlogger.Debug("running migration")

		switch dir {
		case MigrationUp:
			if _, err = d.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("failed applying migration %s: %w", m, err)
			}
			_, err = d.ExecContext(ctx,
				`INSERT INTO _migrations (id, name, applied_at) VALUES (?, ?, ?)`,
				m.ID, m.Name, d.TimeNow().UTC())
		case MigrationDown:
			if _, err = d.ExecContext(ctx, m.Down); err != nil {
				return fmt.Errorf("failed rolling back migration %s: %w", m, err)
			}
			_, err = d.ExecContext(ctx, `DELETE FROM _migrations WHERE id = ?`, m.ID)
		}
		if err != nil {
			return fmt.Errorf("failed updating migration history for %s: %w", m, err)
		}

		mlogger.Info("ran migration")
	}

	return nil
}

func planMigrations(
	migrations []*Migration, applied map[int]struct{}, dir Direction, to string,
) ([]*Migration, error) {
	targetIdx := len(migrations) - 1
	if to != "all" {
		targetIdx = slices.IndexFunc(migrations, func(m *Migration) bool {
			return m.Name == to || m.String() == to
		})
		if targetIdx == -1 {
			return nil, fmt.Errorf("unknown migration '%s'", to)
		}
	}

	var plan []*Migration
	switch dir {
	case MigrationUp:
		for _, m := range migrations[:targetIdx+1] {
			if _, ok := applied[m.ID]; !ok {
				plan = append(plan, m)
			}
		}
	case MigrationDown:
		start := targetIdx + 1
		if to == "all" {
			start = 0
		}
		for i := len(migrations) - 1; i >= start; i-- {
			m := migrations[i]
			if _, ok := applied[m.ID]; !ok {
				continue
			}
			if m.Down == "" {
				return nil, fmt.Errorf("migration %s can't be rolled back", m)
			}
			plan = append(plan, m)
		}
	default:
		return nil, fmt.Errorf("invalid migration direction '%s'", dir)
	}

	return plan, nil
}

// Status describes whether a migration is applied on a database.
type Status struct {
	*Migration
	Applied bool
}

// GetStatus returns the status of each of migrations on the database, in the
// same order.
func GetStatus(d types.Querier, migrations []*Migration) ([]Status, error) {
	applied, err := appliedIDs(d)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(migrations))
	for _, m := range migrations {
		_, ok := applied[m.ID]
		statuses = append(statuses, Status{Migration: m, Applied: ok})
	}

	return statuses, nil
}

// appliedIDs returns the IDs of the applied migrations. The migration history
// table is created if it doesn't exist.
func appliedIDs(d types.Querier) (ids map[int]struct{}, rerr error) {
	_, err := d.ExecContext(d.NewContext(), `CREATE TABLE IF NOT EXISTS _migrations (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed creating migrations table: %w", err)
	}

	rows, err := d.QueryContext(d.NewContext(), `SELECT id FROM _migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed querying migration history: %w", err)
	}
	defer func() {
		rerr = errors.Join(rerr, rows.Close())
	}()

	ids = map[int]struct{}{}
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, types.ScanError{ModelName: "migration", Err: err}
		}
		ids[id] = struct{}{}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over migration rows: %w", err)
	}

	return ids, nil
}
