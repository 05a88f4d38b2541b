package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantaphp/http-endpoint/web/endpoint"
)

func tagger(tag string, out *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*out = append(*out, tag)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	var order []string
	h := Chain(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}),
		tagger("first", &order),
		func(next http.Handler) http.Handler { return tagger("second", &order)(next) },
		mux.MiddlewareFunc(tagger("third", &order)),
	)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"first", "second", "third", "handler"}, order)

	assert.Panics(t, func() { Chain(http.NotFoundHandler(), "nope") })
}

func TestRouteAttributes(t *testing.T) {
	t.Parallel()

	var got map[string]any
	h := RouteAttributes()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = endpoint.Attributes(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/notes/abc", nil)
	req = endpoint.WithAttribute(req, "existing", 1)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, map[string]any{"existing": 1, "id": "abc"}, got)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, got)
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var got any
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = endpoint.Attributes(r)[RequestIDAttribute]
	}))

	t.Run("ok/generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("ok/reused", func(t *testing.T) {
		want := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, want)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Header().Get(RequestIDHeader))
		assert.Equal(t, want, got)
	})

	t.Run("ok/invalid_replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
	})
}

func TestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}),
		RequestID(), Logger(logger),
	)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pot", nil))

	out := buf.String()
	assert.Contains(t, out, `msg="GET /pot"`)
	assert.Contains(t, out, "response_code=418")
	assert.Contains(t, out, "bytes_sent=15")
	assert.Contains(t, out, "request_id=")
	assert.True(t, strings.HasPrefix(out, "time="))
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")

	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(m.Middleware()))
	r.HandleFunc("/notes/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("note"))
	}).Methods(http.MethodGet)

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/notes/"+id, nil))
	}

	mfs, err := reg.Gather()
	require.NoError(t, err)

	requests := findMetric(t, mfs, "test_http_requests_total")
	require.Len(t, requests.GetMetric(), 1)
	assert.InDelta(t, 2, requests.GetMetric()[0].GetCounter().GetValue(), 0)
	assert.Equal(t, map[string]string{"route": "/notes/{id}", "method": "GET", "code": "200"},
		labels(requests.GetMetric()[0]))

	written := findMetric(t, mfs, "test_http_response_bytes_total")
	assert.InDelta(t, 8, written.GetMetric()[0].GetCounter().GetValue(), 0)

	duration := findMetric(t, mfs, "test_http_request_duration_seconds")
	assert.Equal(t, uint64(2), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func findMetric(t *testing.T, mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	require.FailNow(t, "metric not found", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}
