package models_test

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nrednav/cuid2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantaphp/http-endpoint/db"
	"github.com/quantaphp/http-endpoint/db/models"
	"github.com/quantaphp/http-endpoint/db/types"
)

// tickingClock returns a time function that advances one second on each call,
// so that records have distinct timestamps.
func tickingClock() func() time.Time {
	var mx sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mx.Lock()
		defer mx.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	d, err := db.Open(t.Context(),
		fmt.Sprintf("file:notes-%s?mode=memory&cache=shared", cuid2.Generate()), tickingClock())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, d.Init("test", slog.New(slog.DiscardHandler)))

	return d
}

func TestNoteSave(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := d.NewContext()

	n := &models.Note{Title: "groceries", Body: "milk"}
	require.NoError(t, n.Save(ctx, d, false))
	assert.True(t, cuid2.IsCuid(n.ID))
	assert.False(t, n.CreatedAt.IsZero())
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)

	loaded := &models.Note{ID: n.ID}
	require.NoError(t, loaded.Load(ctx, d))
	assert.Equal(t, n, loaded)

	n.Body = "milk, eggs"
	require.NoError(t, n.Save(ctx, d, true))
	assert.True(t, n.UpdatedAt.After(n.CreatedAt))

	loaded = &models.Note{Title: "groceries"}
	require.NoError(t, loaded.Load(ctx, d))
	assert.Equal(t, "milk, eggs", loaded.Body)
	assert.Equal(t, n.UpdatedAt, loaded.UpdatedAt)
}

func TestNoteSaveErrors(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := d.NewContext()

	require.NoError(t, (&models.Note{Title: "taken"}).Save(ctx, d, false))

	err := (&models.Note{Title: "taken"}).Save(ctx, d, false)
	var derr types.DuplicateError
	require.ErrorAs(t, err, &derr)
	assert.EqualError(t, err, "note with title 'taken' already exists")

	err = (&models.Note{}).Save(ctx, d, false)
	assert.ErrorAs(t, err, &types.InvalidInputError{})

	err = (&models.Note{ID: "nope", Title: "x"}).Save(ctx, d, true)
	assert.EqualError(t, err, "invalid note ID 'nope'")

	err = (&models.Note{ID: cuid2.Generate(), Title: "x"}).Save(ctx, d, true)
	assert.ErrorAs(t, err, &types.NoResultError{})
}

func TestNoteDelete(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := d.NewContext()

	n := &models.Note{Title: "temp"}
	require.NoError(t, n.Save(ctx, d, false))

	require.NoError(t, (&models.Note{ID: n.ID}).Delete(ctx, d))

	err := (&models.Note{ID: n.ID}).Load(ctx, d)
	var nerr types.NoResultError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, fmt.Sprintf("note with ID '%s' doesn't exist", n.ID), nerr.Error())

	err = (&models.Note{ID: n.ID}).Delete(ctx, d)
	assert.ErrorAs(t, err, &types.NoResultError{})

	err = (&models.Note{}).Delete(ctx, d)
	assert.EqualError(t, err, "either note ID or Title must be set")
}

func TestNotes(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := d.NewContext()

	for _, title := range []string{"one", "two", "three"} {
		require.NoError(t, (&models.Note{Title: title}).Save(ctx, d, false))
	}

	tests := []struct {
		name      string
		filter    *types.Filter
		expTitles []string
	}{
		{name: "ok/all", expTitles: []string{"three", "two", "one"}},
		{
			name:      "ok/where",
			filter:    types.NewFilter("title LIKE ?", []any{"t%"}),
			expTitles: []string{"three", "two"},
		},
		{
			name:      "ok/contains_or",
			filter:    types.Contains("title", "ne").Or(types.Contains("title", "wo")),
			expTitles: []string{"two", "one"},
		},
		{
			name:      "ok/contains_wildcard",
			filter:    types.Contains("title", "t%"),
			expTitles: []string{},
		},
		{
			name:      "ok/limit",
			filter:    &types.Filter{Limit: 1},
			expTitles: []string{"three"},
		},
		{
			name:      "ok/no_match",
			filter:    types.NewFilter("title = ?", []any{"four"}),
			expTitles: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			notes, err := models.Notes(ctx, d, tt.filter)
			require.NoError(t, err)

			titles := make([]string, 0, len(notes))
			for _, n := range notes {
				titles = append(titles, n.Title)
			}
			assert.Equal(t, tt.expTitles, titles)
		})
	}

	count, err := models.CountNotes(ctx, d, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
