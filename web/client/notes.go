package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/quantaphp/http-endpoint/db/models"
)

// Health reports whether the server is able to handle requests.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, body, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return false, err
	}

	var env struct {
		OK bool `json:"ok"`
	}
	if err = json.Unmarshal(body, &env); err != nil {
		return false, fmt.Errorf("failed unmarshalling response body: %w", err)
	}

	return env.OK, nil
}

// Notes returns the notes whose title contains q, newest first. If limit is
// greater than 0, at most limit notes are returned.
func (c *Client) Notes(ctx context.Context, q string, limit int) ([]*models.Note, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	_, body, err := c.do(ctx, http.MethodGet, "/notes", query, nil)
	if err != nil {
		return nil, err
	}

	var notes []*models.Note
	if err = c.decode(body, &notes); err != nil {
		return nil, err
	}

	return notes, nil
}

// CreateNote stores a new note, and returns it.
func (c *Client) CreateNote(ctx context.Context, title, body string) (*models.Note, error) {
	return c.saveNote(ctx, http.MethodPost, "/notes", map[string]string{"title": title, "body": body})
}

// UpdateNote changes the title and body of the note with id. Empty values
// keep the current ones.
func (c *Client) UpdateNote(ctx context.Context, id, title, body string) (*models.Note, error) {
	data := map[string]string{}
	if title != "" {
		data["title"] = title
	}
	if body != "" {
		data["body"] = body
	}
	return c.saveNote(ctx, http.MethodPut, "/notes/"+url.PathEscape(id), data)
}

// Note returns the note with id, or nil if it doesn't exist.
func (c *Client) Note(ctx context.Context, id string) (*models.Note, error) {
	code, body, err := c.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(id), nil, nil,
		http.StatusNotFound)
	if err != nil || code == http.StatusNotFound {
		return nil, err
	}

	var n models.Note
	if err = c.decode(body, &n); err != nil {
		return nil, err
	}

	return &n, nil
}

// NoteBody returns the body of the note with id.
func (c *Client) NoteBody(ctx context.Context, id string) (string, error) {
	_, body, err := c.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(id)+"/body", nil, nil)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// DeleteNote removes the note with id. It returns false if the note doesn't
// exist.
func (c *Client) DeleteNote(ctx context.Context, id string) (bool, error) {
	code, _, err := c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, nil,
		http.StatusNotFound)
	if err != nil {
		return false, err
	}

	return code == http.StatusOK, nil
}

func (c *Client) saveNote(ctx context.Context, method, path string, data any) (*models.Note, error) {
	_, body, err := c.do(ctx, method, path, nil, data)
	if err != nil {
		return nil, err
	}

	var n models.Note
	if err = c.decode(body, &n); err != nil {
		return nil, err
	}

	return &n, nil
}
