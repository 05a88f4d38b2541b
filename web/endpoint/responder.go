package endpoint

import (
	"net/http"

	"github.com/quantaphp/http-endpoint/web/server/types"
)

// Responder creates responses from a status code and a body. String bodies
// are written as-is, while any other body is serialized.
type Responder interface {
	Respond(statusCode int, body any) (*types.Response, error)
}

// ResponderFunc is an adapter to allow the use of ordinary functions as
// responders.
type ResponderFunc func(statusCode int, body any) (*types.Response, error)

// Respond calls f(statusCode, body).
func (f ResponderFunc) Respond(statusCode int, body any) (*types.Response, error) {
	return f(statusCode, body)
}

// DefaultResponder writes string bodies as HTML, and serializes any other
// body as JSON, or with a custom Serializer.
type DefaultResponder struct {
	serializer Serializer
}

var _ Responder = (*DefaultResponder)(nil)

// ResponderOption is a function that allows configuring the DefaultResponder.
type ResponderOption func(*DefaultResponder)

// WithSerializer sets the serializer used for non-string bodies.
func WithSerializer(s Serializer) ResponderOption {
	return func(r *DefaultResponder) {
		r.serializer = s
	}
}

// NewResponder returns a new DefaultResponder. Non-string bodies are encoded
// as JSON unless a different serializer is set with WithSerializer.
func NewResponder(opts ...ResponderOption) *DefaultResponder {
	r := &DefaultResponder{serializer: JSON()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond creates a response with statusCode. An empty string or nil body
// produces a response without body and Content-Type header. Other string bodies
// are written as-is with an HTML content type, and anything else is
// serialized as JSON.
func (r *DefaultResponder) Respond(statusCode int, body any) (*types.Response, error) {
	resp := types.NewResponse(statusCode)

	switch b := body.(type) {
	case nil:
		return resp, nil
	case string:
		if b == "" {
			return resp, nil
		}
		_, _ = resp.WriteString(b)
		return resp.WithHeader("Content-Type", "text/html; charset=utf-8"), nil
	}

	data, err := r.serializer.Serialize(body)
	if err != nil {
		return nil, err //nolint:wrapcheck // Serializers return typed errors.
	}
	_, _ = resp.Write(data)

	return resp.WithHeader("Content-Type", "application/json"), nil
}

// writeError writes an error response for err to w. The error message is
// filtered according to errLvl.
func writeError(w http.ResponseWriter, err error, errLvl types.ErrorLevel) int {
	code := statusCode(err)
	resp := types.NewResponse(code)

	data, merr := JSON().Serialize(map[string]string{"error": errLvl.Message(code, err)})
	if merr == nil {
		_, _ = resp.Write(data)
		resp.WithHeader("Content-Type", "application/json")
	}

	_ = resp.Send(w)

	return code
}
