package types

import (
	"io"
	"net/http"
)

// Response is a complete HTTP response: a status code, headers and a body.
// It is the value produced by responders and endpoints, and it's only written
// to the client by Send.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponse returns an empty response with the specified status code.
func NewResponse(statusCode int) *Response {
	return &Response{
		StatusCode: statusCode,
		Header:     http.Header{},
	}
}

// WithHeader sets the header key to value and returns the response.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set(key, value)
	return r
}

// Write appends p to the response body. It implements io.Writer.
func (r *Response) Write(p []byte) (int, error) {
	r.Body = append(r.Body, p...)
	return len(p), nil
}

// WriteString appends s to the response body.
func (r *Response) WriteString(s string) (int, error) {
	r.Body = append(r.Body, s...)
	return len(s), nil
}

var _ io.StringWriter = (*Response)(nil)

// Send writes the headers, status code and body to w.
func (r *Response) Send(w http.ResponseWriter) error {
	for k, vals := range r.Header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}

	statusCode := r.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	w.WriteHeader(statusCode)

	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)

	return err //nolint:wrapcheck // Wrapped by caller.
}
