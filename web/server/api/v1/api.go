package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	actx "github.com/quantaphp/http-endpoint/app/context"
	dbtypes "github.com/quantaphp/http-endpoint/db/types"
	"github.com/quantaphp/http-endpoint/web/endpoint"
	"github.com/quantaphp/http-endpoint/web/server/types"
)

// Handler is the API endpoint handler.
type Handler struct {
	appCtx *actx.Context
	logger *slog.Logger
}

// SetupHandlers registers the web API endpoints on r. Endpoints are created
// with f, so they share its responder and envelope options.
func SetupHandlers(appCtx *actx.Context, r *mux.Router, f *endpoint.Factory, logger *slog.Logger) {
	h := Handler{appCtx: appCtx, logger: logger}

	r.Handle("/health", f.New(h.Health, endpoint.WithKey("ok"))).
		Methods(http.MethodGet).Name("health")

	r.Handle("/notes", f.New(h.NotesList)).Methods(http.MethodGet).Name("notes.list")
	r.Handle("/notes", f.New(h.NoteCreate)).Methods(http.MethodPost).Name("notes.create")
	r.Handle("/notes/{id}", f.New(h.NoteGet)).Methods(http.MethodGet).Name("notes.get")
	r.Handle("/notes/{id}", f.New(h.NoteUpdate)).Methods(http.MethodPut).Name("notes.update")
	r.Handle("/notes/{id}", f.New(h.NoteDelete)).Methods(http.MethodDelete).Name("notes.delete")
	r.Handle("/notes/{id}/body", f.New(h.NoteBody)).Methods(http.MethodGet).Name("notes.body")
	r.Handle("/notes/{id}/raw", f.New(h.NoteRaw)).Methods(http.MethodGet).Name("notes.raw")
}

// Health reports that the server is able to handle requests.
func (h *Handler) Health(*endpoint.Input, endpoint.Responder) (any, error) {
	return true, nil
}

// httpErr converts DB errors into HTTP errors with a matching status code.
// Unknown errors are returned as is, and result in a 500 response.
func httpErr(err error) error {
	var (
		noResErr   dbtypes.NoResultError
		dupErr     dbtypes.DuplicateError
		invalidErr dbtypes.InvalidInputError
	)
	switch {
	case errors.As(err, &noResErr):
		return types.WrapError(http.StatusNotFound, noResErr.Error(), err)
	case errors.As(err, &dupErr):
		return types.WrapError(http.StatusConflict, dupErr.Error(), err)
	case errors.As(err, &invalidErr):
		return types.WrapError(http.StatusBadRequest, invalidErr.Error(), err)
	default:
		return err
	}
}
