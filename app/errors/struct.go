package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// StructuredError enhances an error with structured metadata and a cause, which
// can be rendered as fields by slog.
type StructuredError struct {
	err      error
	metadata map[string]any
	cause    error
}

var _ slog.LogValuer = (*StructuredError)(nil)

// Error implements the error interface.
func (e *StructuredError) Error() string {
	return e.err.Error()
}

// Unwrap allows errors.Is and errors.As to work.
func (e *StructuredError) Unwrap() []error {
	var errs []error
	if e.err != nil {
		errs = append(errs, e.err)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Cause returns the cause error of this error.
func (e *StructuredError) Cause() error {
	return e.cause
}

// Metadata returns a copy of the metadata map.
func (e *StructuredError) Metadata() map[string]any {
	return maps.Clone(e.metadata)
}

// LogValue implements slog.LogValuer. The cause is rendered first, followed by
// the metadata fields sorted by key.
func (e *StructuredError) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.metadata)+1)
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	for _, k := range slices.Sorted(maps.Keys(e.metadata)) {
		attrs = append(attrs, slog.Any(k, e.metadata[k]))
	}
	return slog.GroupValue(attrs...)
}

// New creates a new StructuredError from a message string with optional
// metadata fields given as key-value pairs.
func New(msg string, fields ...any) *StructuredError {
	return With(errors.New(msg), fields...)
}

// NewWithCause creates a new StructuredError from a message string with a cause
// and optional metadata.
func NewWithCause(msg string, cause error, fields ...any) *StructuredError {
	return WithCause(errors.New(msg), cause, fields...)
}

// Errorf creates a new StructuredError with a formatted message. The %w verb
// is supported as in fmt.Errorf.
func Errorf(format string, args ...any) *StructuredError {
	return &StructuredError{err: fmt.Errorf(format, args...), metadata: map[string]any{}}
}

// With adds metadata to an error. If the error is already a StructuredError,
// it merges the metadata. Otherwise, it creates a new StructuredError.
func With(err error, fields ...any) *StructuredError {
	var cause error
	if se, ok := err.(*StructuredError); ok { //nolint:errorlint // Only merge direct values.
		cause = se.cause
	}
	return merge(err, cause, fields)
}

// WithCause creates a StructuredError with a cause and optional metadata.
func WithCause(err, cause error, fields ...any) *StructuredError {
	return merge(err, cause, fields)
}

func merge(err, cause error, fields []any) *StructuredError {
	if len(fields)%2 != 0 {
		panic("an even number of fields is required")
	}

	metadata := map[string]any{}
	if se, ok := err.(*StructuredError); ok { //nolint:errorlint // Only merge direct values.
		maps.Copy(metadata, se.metadata)
		err = se.err
	}

	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			panic("keys must be strings")
		}
		metadata[key] = fields[i+1] // newer metadata overwrites older
	}

	return &StructuredError{err: err, metadata: metadata, cause: cause}
}
