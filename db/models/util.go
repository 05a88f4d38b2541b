package models

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/quantaphp/http-endpoint/db/types"
)

func filterCount(ctx context.Context, d types.Querier, table string, filter *types.Filter) (int, error) {
	countQ := fmt.Sprintf(`SELECT COUNT(*) FROM "%s" WHERE %s`, table, filter.Where)
	var count int
	err := d.QueryRowContext(ctx, countQ, filter.Args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed scanning %s count query: %w", table, err)
	}

	return count, nil
}

// oneRowAffected checks that a statement changed exactly one record.
func oneRowAffected(res sql.Result, modelName, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed getting affected rows: %w", err)
	}

	switch {
	case n == 0:
		return types.NoResultError{ModelName: modelName, ID: id}
	case n > 1:
		return types.IntegrityError{Msg: fmt.Sprintf("affected %d %s records", n, modelName)}
	}

	return nil
}
