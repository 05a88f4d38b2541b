package types

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Querier exposes only methods for running SQL queries, and some helper functions.
type Querier interface {
	NewContext() context.Context
	TimeNow() time.Time
	ExecContext(ctx context.Context, sql string, arguments ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Filter is used to dynamically modify queries.
type Filter struct {
	Where string
	Args  []any
	Limit int
}

// NewFilter creates a new query filter.
func NewFilter(where string, args []any) *Filter {
	return &Filter{Where: where, Args: args}
}

// Contains creates a filter that matches rows where column contains s. LIKE
// wildcards in s are matched literally.
func Contains(column, s string) *Filter {
	return NewFilter(column+` LIKE ? ESCAPE '\'`, []any{"%" + likeEscaper.Replace(s) + "%"})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Or joins f2 with f1 using an OR condition.
func (f1 *Filter) Or(f2 *Filter) *Filter {
	return &Filter{
		Where: fmt.Sprintf("(%s OR %s)", f1.Where, f2.Where),
		Args:  slices.Concat(f1.Args, f2.Args),
	}
}
