package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorLevel is the amount of error detail exposed to clients in error
// response bodies. It never affects the response status code.
type ErrorLevel string

const (
	// ErrorLevelNone only exposes the status text of the error response.
	ErrorLevelNone ErrorLevel = "none"
	// ErrorLevelMinimal exposes the outermost error message, without the
	// messages of any wrapped causes.
	ErrorLevelMinimal ErrorLevel = "minimal"
	// ErrorLevelFull exposes the complete error message.
	ErrorLevelFull ErrorLevel = "full"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *ErrorLevel) UnmarshalText(text []byte) error {
	switch lvl := ErrorLevel(strings.ToLower(string(text))); lvl {
	case ErrorLevelNone, ErrorLevelMinimal, ErrorLevelFull:
		*l = lvl
		return nil
	default:
		return fmt.Errorf("invalid error level '%s'", text)
	}
}

// String implements fmt.Stringer.
func (l ErrorLevel) String() string {
	return string(l)
}

// Message returns the client facing message for err with the given status
// code, according to the error level.
func (l ErrorLevel) Message(statusCode int, err error) string {
	switch l {
	case ErrorLevelFull:
		return err.Error()
	case ErrorLevelMinimal:
		if herr, ok := err.(*Error); ok { //nolint:errorlint // Only the outermost error counts.
			return herr.Message
		}
		msg := err.Error()
		if i := strings.Index(msg, ": "); i > 0 {
			msg = msg[:i]
		}
		return msg
	default:
		return http.StatusText(statusCode)
	}
}
