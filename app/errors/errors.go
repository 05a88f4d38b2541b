package errors

import (
	"context"
	"errors"
	"log/slog"
)

// Log logs err at the error level with logger. The cause and metadata of a
// StructuredError are rendered as fields.
func Log(logger *slog.Logger, err error) {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		logger.Error(err.Error())
		return
	}

	val := serr.LogValue()
	args := make([]any, 0, len(val.Group()))
	for _, attr := range val.Group() {
		args = append(args, attr)
	}

	logger.Log(context.Background(), slog.LevelError, err.Error(), args...)
}
