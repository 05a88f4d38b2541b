package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/nrednav/cuid2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantaphp/http-endpoint/app/config"
	actx "github.com/quantaphp/http-endpoint/app/context"
	"github.com/quantaphp/http-endpoint/db"
	"github.com/quantaphp/http-endpoint/web/endpoint"
	"github.com/quantaphp/http-endpoint/web/server/middleware"
	"github.com/quantaphp/http-endpoint/web/server/types"
)

func newTestContext(t *testing.T, cfgJSON string) *actx.Context {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	d, err := db.Open(t.Context(),
		fmt.Sprintf("file:server-%s?mode=memory&cache=shared", cuid2.Generate()), time.Now)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NoError(t, d.Init("test", logger))

	fs := memoryfs.New()
	cfg := config.NewConfig(fs, "/config.json")
	if cfgJSON != "" {
		require.NoError(t, json.Unmarshal([]byte(cfgJSON), cfg))
	}
	cfg.SetDefaults()

	return &actx.Context{
		Ctx: t.Context(), FS: fs, Logger: logger, TimeNow: time.Now, Config: cfg, DB: d,
	}
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	appCtx := newTestContext(t, "")
	r := NewRouter(appCtx, appCtx.Logger, prometheus.NewRegistry())

	routes, err := Routes(r)
	require.NoError(t, err)

	got := make(map[string]string, len(routes))
	for _, rt := range routes {
		got[rt.Name] = rt.String()
	}

	assert.Equal(t, map[string]string{
		"metrics":      "GET /metrics",
		"health":       "GET /api/v1/health",
		"notes.list":   "GET /api/v1/notes",
		"notes.create": "POST /api/v1/notes",
		"notes.get":    "GET /api/v1/notes/{id}",
		"notes.update": "PUT /api/v1/notes/{id}",
		"notes.delete": "DELETE /api/v1/notes/{id}",
		"notes.body":   "GET /api/v1/notes/{id}/body",
		"notes.raw":    "GET /api/v1/notes/{id}/raw",
	}, got)
	assert.Equal(t, "metrics", routes[0].Name)
}

func TestServerNotes(t *testing.T) {
	t.Parallel()

	appCtx := newTestContext(t, `{"endpoint": {"key": "result", "metadata": {"version": "1"}}}`)
	srv := httptest.NewServer(SetupHandlers(appCtx, appCtx.Logger, prometheus.NewRegistry(),
		endpoint.WithErrorLevel(types.ErrorLevelMinimal)))
	t.Cleanup(srv.Close)

	do := func(method, path string, form url.Values) (*http.Response, string) {
		t.Helper()
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, body)
		require.NoError(t, err)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(data)
	}

	resp, body := do(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok": true, "version": "1"}`, body)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	resp, body = do(http.MethodPost, "/api/v1/notes", url.Values{"title": {"hello"}, "body": {"world"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		Version string `json:"version"`
		Result  struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, "1", created.Version)
	assert.Equal(t, "hello", created.Result.Title)

	resp, body = do(http.MethodGet, "/api/v1/notes/"+created.Result.ID+"/body", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "world", body)

	resp, body = do(http.MethodPost, "/api/v1/notes", url.Values{"title": {"hello"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.JSONEq(t, `{"error": "note with title 'hello' already exists"}`, body)

	resp, body = do(http.MethodGet, "/api/v1/notes", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"title":"hello"`)

	resp, _ = do(http.MethodGet, "/api/v1/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `endpoint_store_notes 1`)
	assert.Contains(t, body,
		`endpoint_http_requests_total{code="200",method="POST",route="/api/v1/notes"} 1`)
	assert.Contains(t, body,
		`endpoint_http_requests_total{code="409",method="POST",route="/api/v1/notes"} 1`)
	assert.Contains(t, body,
		`endpoint_http_requests_total{code="200",method="GET",route="/api/v1/notes/{id}/body"} 1`)
	assert.Contains(t, body, `go_goroutines`)
}

func TestServerListenAndServe(t *testing.T) {
	t.Parallel()

	appCtx := newTestContext(t, `{"server": {"read_timeout": "5s", "write_timeout": "10s"}}`)
	srv := New(appCtx, "127.0.0.1:0")
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.Equal(t, 10*time.Second, srv.WriteTimeout)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	var addr string
	require.Eventually(t, func() bool {
		addr = srv.Address()
		return !strings.HasSuffix(addr, ":0")
	}, 5*time.Second, 10*time.Millisecond)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet,
		fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.True(t, errors.Is(<-errCh, http.ErrServerClosed))
}
