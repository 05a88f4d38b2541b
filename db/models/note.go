package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nrednav/cuid2"

	"github.com/quantaphp/http-endpoint/db/types"
)

// Note is a short text document with a unique title.
type Note struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
}

// Save stores the note data in the database. New notes are assigned a random
// ID, and existing notes are looked up by ID.
func (n *Note) Save(ctx context.Context, d types.Querier, update bool) error {
	if n.Title == "" {
		return types.InvalidInputError{Msg: "note title must not be empty"}
	}

	timeNow := d.TimeNow().UTC()
	if update {
		if !cuid2.IsCuid(n.ID) {
			return types.InvalidInputError{Msg: fmt.Sprintf("invalid note ID '%s'", n.ID)}
		}

		res, err := d.ExecContext(ctx, `UPDATE notes
			SET updated_at = ?,
			    title = ?,
			    body = ?
			WHERE id = ?`, timeNow, n.Title, n.Body, n.ID)
		if err != nil {
			return types.Err("note", fmt.Sprintf("title '%s'", n.Title), err)
		}

		if err = oneRowAffected(res, "note", fmt.Sprintf("ID '%s'", n.ID)); err != nil {
			return err
		}
		n.UpdatedAt = timeNow

		return nil
	}

	id := cuid2.Generate()
	_, err := d.ExecContext(ctx, `INSERT INTO notes
		(id, created_at, updated_at, title, body)
		VALUES (?, ?, ?, ?, ?)`, id, timeNow, timeNow, n.Title, n.Body)
	if err != nil {
		return types.Err("note", fmt.Sprintf("title '%s'", n.Title), err)
	}

	n.ID = id
	n.CreatedAt = timeNow
	n.UpdatedAt = timeNow

	return nil
}

// Load the note data from the database. Either the note ID or Title must be
// set for the lookup.
func (n *Note) Load(ctx context.Context, d types.Querier) error {
	filter, filterStr, err := n.filter()
	if err != nil {
		return err
	}

	notes, err := Notes(ctx, d, filter)
	if err != nil {
		return err
	}

	if len(notes) == 0 {
		return types.NoResultError{ModelName: "note", ID: filterStr}
	}
	*n = *notes[0]

	return nil
}

// Delete removes the note data from the database. Either the note ID or Title
// must be set for the lookup. It returns an error if the note doesn't exist.
func (n *Note) Delete(ctx context.Context, d types.Querier) error {
	filter, filterStr, err := n.filter()
	if err != nil {
		return err
	}

	res, err := d.ExecContext(ctx, fmt.Sprintf(`DELETE FROM notes WHERE %s`, filter.Where), filter.Args...)
	if err != nil {
		return types.Err("note", filterStr, err)
	}

	return oneRowAffected(res, "note", filterStr)
}

func (n *Note) filter() (*types.Filter, string, error) {
	switch {
	case n.ID != "":
		return types.NewFilter("id = ?", []any{n.ID}), fmt.Sprintf("ID '%s'", n.ID), nil
	case n.Title != "":
		return types.NewFilter("title = ?", []any{n.Title}), fmt.Sprintf("title '%s'", n.Title), nil
	default:
		return nil, "", types.InvalidInputError{Msg: "either note ID or Title must be set"}
	}
}

// Notes returns one or more notes from the database, newest first. An
// optional filter can be passed to limit the results.
func Notes(ctx context.Context, d types.Querier, filter *types.Filter) (notes []*Note, rerr error) {
	query := `SELECT id, created_at, updated_at, title, body
		FROM notes
		WHERE %s
		ORDER BY created_at DESC, id ASC`

	where := "1=1"
	args := []any{}
	if filter != nil {
		if filter.Where != "" {
			where = filter.Where
		}
		args = append(args, filter.Args...)
	}
	query = fmt.Sprintf(query, where)
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.LoadError{ModelName: "notes", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = errors.Join(rerr, fmt.Errorf("failed closing notes rows: %w", err))
		}
	}()

	notes = make([]*Note, 0)
	for rows.Next() {
		var n Note
		err = rows.Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt, &n.Title, &n.Body)
		if err != nil {
			return nil, types.ScanError{ModelName: "note", Err: err}
		}
		n.CreatedAt, n.UpdatedAt = n.CreatedAt.UTC(), n.UpdatedAt.UTC()
		notes = append(notes, &n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over notes rows: %w", err)
	}

	return notes, nil
}

// CountNotes returns the number of notes matching filter, or all notes if
// filter is nil.
func CountNotes(ctx context.Context, d types.Querier, filter *types.Filter) (int, error) {
	if filter == nil {
		filter = types.NewFilter("1=1", nil)
	}
	return filterCount(ctx, d, "notes", filter)
}
