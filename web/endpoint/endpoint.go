package endpoint

import (
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"reflect"

	"github.com/quantaphp/http-endpoint/web/server/types"
)

const (
	// DefaultKey is the key under which endpoint results are placed in the
	// response envelope.
	DefaultKey = "data"
)

// DefaultMetadata returns the static fields merged into every response
// envelope by default. It is empty.
func DefaultMetadata() map[string]any {
	return map[string]any{}
}

var errNoResponse = types.NewInternalError("the responder returned no response")

// Func is an endpoint handler. It receives the request input and the
// endpoint's responder, and its result is mapped to a response:
//
//   - nil, or a nil pointer, map or slice: an empty 200 response
//   - false: an empty 404 response
//   - a string: a 200 response with the string as body
//   - a *types.Response or types.Response: returned as is
//   - anything else: a 200 response with the value wrapped in the metadata
//     envelope under the endpoint's key
//
// A non-nil error aborts the request. It is returned by Endpoint.Handle, and
// written as an error response by Endpoint.ServeHTTP.
type Func func(in *Input, r Responder) (any, error)

// Endpoint is an http.Handler that maps the value returned by a Func to a
// response created by a Responder.
type Endpoint struct {
	responder Responder
	f         Func
	key       string
	metadata  map[string]any
	errLevel  types.ErrorLevel
	logger    *slog.Logger
}

var _ http.Handler = (*Endpoint)(nil)

// New returns a new Endpoint that invokes f and maps its result to a response
// created by responder.
func New(responder Responder, f Func, opts ...Option) *Endpoint {
	o := newOptions(opts)
	return &Endpoint{
		responder: responder,
		f:         f,
		key:       o.key,
		metadata:  o.metadata,
		errLevel:  o.errLevel,
		logger:    o.logger,
	}
}

// Key returns the key under which results are placed in the response envelope.
func (e *Endpoint) Key() string {
	return e.key
}

// Metadata returns a copy of the static fields of the response envelope.
func (e *Endpoint) Metadata() map[string]any {
	return maps.Clone(e.metadata)
}

// Handle invokes the endpoint function and returns the response its result
// maps to.
func (e *Endpoint) Handle(r *http.Request) (*types.Response, error) {
	v, err := e.f(NewInput(r), e.responder)
	if err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case nil:
		return e.responder.Respond(http.StatusOK, "")
	case bool:
		if !val {
			return e.responder.Respond(http.StatusNotFound, "")
		}
	case string:
		return e.responder.Respond(http.StatusOK, val)
	case *types.Response:
		if val == nil {
			return e.responder.Respond(http.StatusOK, "")
		}
		return val, nil
	case types.Response:
		return &val, nil
	}

	if isNil(v) {
		return e.responder.Respond(http.StatusOK, "")
	}

	return e.responder.Respond(http.StatusOK, wrap(e.key, e.metadata, v))
}

// isNil reports whether v is a typed nil pointer, map or slice.
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // Other kinds are never nil, or handled by flatten.
	case reflect.Pointer, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

// ServeHTTP implements http.Handler. Errors are logged, and written as JSON
// error responses whose message detail depends on the endpoint's error level.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := e.Handle(r)
	if err == nil && resp == nil {
		err = errNoResponse
	}

	if err != nil {
		code := writeError(w, err, e.errLevel)
		lvl := slog.LevelWarn
		if code >= http.StatusInternalServerError {
			lvl = slog.LevelError
		}
		e.logger.Log(r.Context(), lvl, "failed handling request",
			"method", r.Method, "path", r.URL.Path, "status", code, "error", err.Error())
		return
	}

	if err = resp.Send(w); err != nil {
		e.logger.Error("failed writing response", "path", r.URL.Path, "error", err.Error())
	}
}

// flatten converts range-over-func sequences into values that can be
// serialized: iter.Seq2 sequences become maps keyed by the string form of
// their keys, and iter.Seq sequences become slices. Other values are
// returned unchanged.
func flatten(v any) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return v
	}

	switch t := rv.Type(); {
	case t.CanSeq2():
		m := map[string]any{}
		for k, val := range rv.Seq2() {
			m[keyString(k)] = val.Interface()
		}
		return m
	case t.CanSeq():
		s := []any{}
		for val := range rv.Seq() {
			s = append(s, val.Interface())
		}
		return s
	default:
		return v
	}
}

func keyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}
