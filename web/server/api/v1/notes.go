package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/quantaphp/http-endpoint/db/models"
	dbtypes "github.com/quantaphp/http-endpoint/db/types"
	"github.com/quantaphp/http-endpoint/web/endpoint"
	"github.com/quantaphp/http-endpoint/web/server/types"
)

// NotesList returns the stored notes, newest first. The optional q input
// matches notes whose title or body contains it, and limit caps their number.
func (h *Handler) NotesList(in *endpoint.Input, _ endpoint.Responder) (any, error) {
	limit, err := in.Int("limit", 0)
	if err != nil {
		return nil, types.WrapError(http.StatusBadRequest, "invalid limit", err)
	}
	if limit < 0 {
		return nil, types.NewBadRequestError("invalid limit")
	}
	q, err := in.String("q", "")
	if err != nil {
		return nil, types.WrapError(http.StatusBadRequest, "invalid query", err)
	}

	filter := &dbtypes.Filter{}
	if q != "" {
		filter = dbtypes.Contains("title", q).Or(dbtypes.Contains("body", q))
	}
	filter.Limit = limit

	notes, err := models.Notes(in.Request().Context(), h.appCtx.DB, filter)
	if err != nil {
		return nil, err //nolint:wrapcheck // Results in a 500 response.
	}

	return slices.Values(notes), nil
}

// NoteCreate stores a new note. The title input is required.
func (h *Handler) NoteCreate(in *endpoint.Input, _ endpoint.Responder) (any, error) {
	title, err := in.String("title")
	if err != nil {
		return nil, err //nolint:wrapcheck // Input errors result in a 400 response.
	}
	body, err := in.String("body", "")
	if err != nil {
		return nil, types.WrapError(http.StatusBadRequest, "invalid body", err)
	}

	n := &models.Note{Title: title, Body: body}
	if err = n.Save(in.Request().Context(), h.appCtx.DB, false); err != nil {
		return nil, httpErr(err)
	}

	h.logger.Debug("created note", "id", n.ID)

	return n, nil
}

// NoteGet returns a single note, or an empty 404 response if it doesn't exist.
func (h *Handler) NoteGet(in *endpoint.Input, _ endpoint.Responder) (any, error) {
	n, err := h.loadNote(in)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return false, nil
	}

	return n, nil
}

// NoteUpdate changes the title and body of a note. Inputs that aren't given
// keep their current value.
func (h *Handler) NoteUpdate(in *endpoint.Input, _ endpoint.Responder) (any, error) {
	n, err := h.loadNote(in)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return false, nil
	}

	if n.Title, err = in.String("title", n.Title); err != nil {
		return nil, types.WrapError(http.StatusBadRequest, "invalid title", err)
	}
	if n.Body, err = in.String("body", n.Body); err != nil {
		return nil, types.WrapError(http.StatusBadRequest, "invalid body", err)
	}

	if err = n.Save(in.Request().Context(), h.appCtx.DB, true); err != nil {
		return nil, httpErr(err)
	}

	return n, nil
}

// NoteDelete removes a note. It returns an empty 200 response on success, and
// an empty 404 response if the note doesn't exist.
func (h *Handler) NoteDelete(in *endpoint.Input, _ endpoint.Responder) (any, error) {
	id, err := in.String("id")
	if err != nil {
		return nil, err //nolint:wrapcheck // Input errors result in a 400 response.
	}

	err = (&models.Note{ID: id}).Delete(in.Request().Context(), h.appCtx.DB)
	if errors.As(err, &dbtypes.NoResultError{}) {
		return false, nil
	}
	if err != nil {
		return nil, httpErr(err)
	}

	h.logger.Debug("deleted note", "id", id)

	return nil, nil //nolint:nilnil // An empty 200 response.
}

// NoteBody returns the body of a note as HTML.
func (h *Handler) NoteBody(in *endpoint.Input, _ endpoint.Responder) (any, error) {
	n, err := h.loadNote(in)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, types.NewNotFoundError("note not found")
	}

	return n.Body, nil
}

// NoteRaw returns the note as plain text. The response is built by the handler
// itself, and supports conditional requests with If-Modified-Since.
func (h *Handler) NoteRaw(in *endpoint.Input, _ endpoint.Responder) (any, error) {
	n, err := h.loadNote(in)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return false, nil
	}

	modified := n.UpdatedAt.Truncate(time.Second)
	if since, perr := http.ParseTime(in.Request().Header.Get("If-Modified-Since")); perr == nil &&
		!modified.After(since) {
		return types.NewResponse(http.StatusNotModified), nil
	}

	resp := types.NewResponse(http.StatusOK).
		WithHeader("Content-Type", "text/plain; charset=utf-8").
		WithHeader("Last-Modified", modified.Format(http.TimeFormat))
	_, _ = fmt.Fprintf(resp, "%s\n\n%s\n", n.Title, n.Body)

	return resp, nil
}

// loadNote loads the note identified by the id input. It returns a nil note if
// it doesn't exist.
func (h *Handler) loadNote(in *endpoint.Input) (*models.Note, error) {
	id, err := in.String("id")
	if err != nil {
		return nil, err //nolint:wrapcheck // Input errors result in a 400 response.
	}

	n := &models.Note{ID: id}
	err = n.Load(in.Request().Context(), h.appCtx.DB)
	if errors.As(err, &dbtypes.NoResultError{}) {
		return nil, nil //nolint:nilnil // Missing notes are handled by the callers.
	}
	if err != nil {
		return nil, httpErr(err)
	}

	return n, nil
}
