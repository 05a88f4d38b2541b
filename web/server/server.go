package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	actx "github.com/quantaphp/http-endpoint/app/context"
	"github.com/quantaphp/http-endpoint/db/models"
	"github.com/quantaphp/http-endpoint/web/endpoint"
	api "github.com/quantaphp/http-endpoint/web/server/api/v1"
	"github.com/quantaphp/http-endpoint/web/server/middleware"
)

// metricsNamespace is the prefix of all exported Prometheus metrics.
const metricsNamespace = "endpoint"

// Server is a wrapper around http.Server with some custom behavior.
type Server struct {
	*http.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// New returns a new web Server instance that will listen on addr. The
// endpoint options are applied to all API endpoints, after the ones derived
// from the application configuration.
func New(appCtx *actx.Context, addr string, opts ...endpoint.Option) *Server {
	logger := appCtx.Logger.With("component", "web-server")

	srv := &http.Server{
		Handler:           SetupHandlers(appCtx, logger, prometheus.NewRegistry(), opts...),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg := appCtx.Config; cfg != nil {
		srv.ReadTimeout = cfg.Server.ReadTimeout.V
		srv.WriteTimeout = cfg.Server.WriteTimeout.V
	}

	return &Server{Server: srv, logger: logger}
}

// ListenAndServe starts the HTTP server. It stores the actual listen address,
// which is convenient when the address is dynamically determined by the system
// (e.g. ':0').
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	addr := ln.Addr().String()
	s.mu.Lock()
	s.Addr = addr
	s.mu.Unlock()
	s.logger.Info("started listener", "address", addr)

	//nolint:wrapcheck // This is fine.
	return s.Serve(ln)
}

// Address returns the address the server listens on. After ListenAndServe is
// called, it is the actual address of the listener.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Addr
}

// SetupHandlers configures the server HTTP handlers. Metrics are registered
// with reg, and exposed on /metrics.
func SetupHandlers(
	appCtx *actx.Context, logger *slog.Logger, reg *prometheus.Registry, opts ...endpoint.Option,
) http.Handler {
	return middleware.Chain(NewRouter(appCtx, logger, reg, opts...),
		middleware.RequestID(),
		middleware.Logger(logger),
	)
}

// NewRouter returns the router of all server routes.
func NewRouter(
	appCtx *actx.Context, logger *slog.Logger, reg *prometheus.Registry, opts ...endpoint.Option,
) *mux.Router {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registerStoreMetrics(appCtx, reg)
	metrics := middleware.NewMetrics(reg, metricsNamespace)

	r := mux.NewRouter()
	r.Use(
		mux.MiddlewareFunc(metrics.Middleware()),
		mux.MiddlewareFunc(middleware.RouteAttributes()),
	)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).
		Methods(http.MethodGet).Name("metrics")

	epOpts := []endpoint.Option{endpoint.WithLogger(logger)}
	if appCtx.Config != nil {
		epOpts = append(epOpts, appCtx.Config.Endpoint.Options()...)
	}
	epOpts = append(epOpts, opts...)

	api.SetupHandlers(appCtx, r.PathPrefix("/api/v1").Subrouter(), endpoint.Default(epOpts...), logger)

	return r
}

func registerStoreMetrics(appCtx *actx.Context, reg prometheus.Registerer) {
	if appCtx.DB == nil {
		return
	}
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "store",
		Name:      "notes",
		Help:      "Number of stored notes.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(appCtx.DB.NewContext(), 5*time.Second)
		defer cancel()
		n, err := models.CountNotes(ctx, appCtx.DB, nil)
		if err != nil {
			appCtx.Logger.Warn("failed counting notes", "error", err.Error())
			return 0
		}
		return float64(n)
	})
}

// Route describes a registered server route.
type Route struct {
	Name    string
	Methods []string
	Path    string
}

// Routes returns the routes registered on r that have a handler, in
// registration order.
func Routes(r *mux.Router) ([]Route, error) {
	var routes []Route
	err := r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if route.GetHandler() == nil {
			return nil
		}
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return fmt.Errorf("failed getting path of route '%s': %w", route.GetName(), err)
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		routes = append(routes, Route{Name: route.GetName(), Methods: methods, Path: tpl})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed walking routes: %w", err)
	}

	return routes, nil
}

// String returns the route in "<methods> <path>" format.
func (r Route) String() string {
	return fmt.Sprintf("%s %s", strings.Join(r.Methods, ","), r.Path)
}
