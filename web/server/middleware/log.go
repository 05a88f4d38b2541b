package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/quantaphp/http-endpoint/web/endpoint"
)

// Logger logs request details and response metrics. Requests that were
// assigned an ID by RequestID are logged with it.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			args := []any{
				"response_code", m.Code,
				"duration", m.Duration,
				"bytes_sent", m.Written,
				"remote_addr", r.RemoteAddr,
			}
			if id, ok := endpoint.Attributes(r)[RequestIDAttribute]; ok {
				args = append(args, "request_id", id)
			}

			lvl := slog.LevelInfo
			if m.Code >= http.StatusInternalServerError {
				lvl = slog.LevelWarn
			}
			logger.Log(r.Context(), lvl, fmt.Sprintf("%s %s", r.Method, r.URL), args...)
		})
	}
}
