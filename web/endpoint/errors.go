package endpoint

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/quantaphp/http-endpoint/web/server/types"
)

// NotFoundError is returned by Input when a key isn't found in any of the
// request value sources, and no default value was given.
type NotFoundError struct {
	Key string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input '%s' not found", e.Key)
}

// SerializationError is returned when a response body can't be serialized.
type SerializationError struct {
	Err error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	msg := "failed serializing the response contents as JSON"
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

// Unwrap returns the cause of the serialization failure.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// ConfigurationError is returned when a component was set up with a value that
// doesn't satisfy its contract, such as a serializer function with the wrong
// signature.
type ConfigurationError struct {
	Msg string
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the underlying error, if any.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// statusCode returns the HTTP status code an error response for err should
// have.
func statusCode(err error) int {
	var (
		herr *types.Error
		nerr *NotFoundError
	)
	switch {
	case errors.As(err, &herr) && herr.StatusCode != 0:
		return herr.StatusCode
	case errors.As(err, &nerr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
