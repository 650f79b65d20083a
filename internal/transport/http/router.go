package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/linklytics/linklytics/internal/config"
	"github.com/linklytics/linklytics/internal/infrastructure/telemetry"
	"github.com/linklytics/linklytics/internal/processing/clicks"
	"github.com/linklytics/linklytics/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":              "health",
	"GET /metrics":             "metrics",
	"POST /link":               "links.create",
	"GET /link/{id}":           "links.redirect",
	"GET /dashboard":           "dashboard.summary",
	"GET /dashboard/link/{id}": "dashboard.link",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool

	LinksHandlerOptions LinksHandlerOptions
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
		LinksHandlerOptions: LinksHandlerOptions{
			AsyncClick:   true,
			ClickTimeout: 2 * time.Second,
		},
	}
}

func NewRouter(cfg *config.Config, linkSvc LinkService, statsSvc StatsService, sink clicks.Sink, createLimiter *middleware.RedisFixedWindowLimiter) http.Handler {
	return NewRouterWithOptions(cfg, linkSvc, statsSvc, sink, createLimiter, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, linkSvc LinkService, statsSvc StatsService, sink clicks.Sink, createLimiter *middleware.RedisFixedWindowLimiter, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler()
	linksHandler := NewLinksHandlerWithOptions(cfg, linkSvc, sink, opts.LinksHandlerOptions)
	dashboardHandler := NewDashboardHandler(cfg, statsSvc)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	createMiddlewares := []func(http.Handler) http.Handler{
		middleware.APIKeyMiddleware(cfg.Security.APIKeys),
	}
	if createLimiter != nil {
		createMiddlewares = append(createMiddlewares, middleware.RateLimitMiddleware(createLimiter))
	}

	mux.Handle("POST /link", middleware.Chain(
		http.HandlerFunc(linksHandler.Create),
		createMiddlewares...,
	))

	mux.HandleFunc("GET /link/{id}", linksHandler.Redirect)
	mux.HandleFunc("GET /dashboard", dashboardHandler.Dashboard)
	mux.HandleFunc("GET /dashboard/link/{id}", dashboardHandler.LinkStats)

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			// Pattern carries the method for routes registered with one,
			// e.g. "GET /link/{id}".
			if name, ok := spanNames[r.Pattern]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
