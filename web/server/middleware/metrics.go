package middleware

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records Prometheus metrics of served requests, labeled by the
// matched route template.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	written  *prometheus.CounterVec
}

// NewMetrics creates the HTTP metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		written: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_bytes_total",
			Help:      "Total number of bytes written in HTTP response bodies.",
		}, []string{"route", "method"}),
	}
}

// Middleware returns the middleware recording the metrics.
func (m *Metrics) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snoop := httpsnoop.CaptureMetrics(next, w, r)
			route := routeTemplate(r)

			m.requests.WithLabelValues(route, r.Method, strconv.Itoa(snoop.Code)).Inc()
			m.duration.WithLabelValues(route, r.Method).Observe(snoop.Duration.Seconds())
			m.written.WithLabelValues(route, r.Method).Add(float64(snoop.Written))
		})
	}
}

// routeTemplate returns the path template of the route matched for r, so that
// requests to the same route share labels regardless of their variables.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unknown"
	}
	return tpl
}
