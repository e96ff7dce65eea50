package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/hybridsearch/pkg/health"
	"github.com/utafrali/hybridsearch/pkg/middleware"
)

// RouterConfig holds the optional HTTP surface settings.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	// Auth gates /api/search when non-nil.
	Auth           *middleware.AuthConfig
	RateLimitRPS   float64
	RateLimitBurst int
	PprofCIDRs     []string
	RequestTimeout time.Duration
	// Done stops background middleware goroutines.
	Done <-chan struct{}
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchHandler *SearchHandler,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "search"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// Search API endpoints
	r.Route("/api/search", func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(chimw.Timeout(cfg.RequestTimeout))
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.Done, logger))
		}
		if cfg.Auth != nil {
			r.Use(middleware.JWTAuth(*cfg.Auth, logger))
			// Re-derive the request logger so it carries user_id.
			r.Use(middleware.RequestLogger(logger))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl("no-store"))
			r.Get("/simple", searchHandler.Lexical)
			r.Get("/elastic", searchHandler.Relevance)
			r.Get("/suggest", searchHandler.Suggest)
		})
		r.Post("/reindex", searchHandler.Reindex)
	})

	return r
}
