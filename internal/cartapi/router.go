package cartapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cartwidget/internal/health"
	"github.com/noah-isme/toko-cartwidget/internal/obs"
	"github.com/noah-isme/toko-cartwidget/internal/ratelimit"
	"github.com/noah-isme/toko-cartwidget/internal/security"
)

// RouterConfig assembles the HTTP surface of the cart API.
type RouterConfig struct {
	Handler *Handler
	Health  health.Handler
	Logger  zerolog.Logger
	// HTTPMetrics enables request metrics and the /metrics endpoint.
	HTTPMetrics     *obs.HTTPMetrics
	MetricsHandler  http.Handler
	Tracing         bool
	AllowedOrigins  []string
	SessionCookie   string
	SecurityHeaders security.Headers
	BodyLimit       int64
	// RateLimit is skipped when nil.
	RateLimit *ratelimit.Handler
}

// NewRouter builds the chi router serving the cart API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: cfg.Logger, SessionCookie: cfg.SessionCookie}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(cfg.SecurityHeaders.Middleware)

	if cfg.HTTPMetrics != nil {
		metrics := cfg.MetricsHandler
		if metrics == nil {
			metrics = promhttp.Handler()
		}
		r.Handle("/metrics", metrics)
	}
	r.Get("/health/live", cfg.Health.Live)
	r.Get("/health/ready", cfg.Health.Ready)

	r.Group(func(api chi.Router) {
		if cfg.BodyLimit > 0 {
			api.Use(security.BodyLimit{Max: cfg.BodyLimit}.Middleware)
		}
		if cfg.RateLimit != nil {
			api.Use(cfg.RateLimit.Middleware)
		}
		cfg.Handler.Routes(api)
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
