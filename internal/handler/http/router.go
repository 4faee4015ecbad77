package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/willrp/willstores-ws/internal/service"
	"github.com/willrp/willstores-ws/pkg/health"
	"github.com/willrp/willstores-ws/pkg/middleware"
)

// RouterConfig holds the boundary settings of the catalog router.
type RouterConfig struct {
	ServiceName  string
	AccessToken  string
	AuthDisabled bool
	RateLimit    middleware.RateLimitConfig
	CORS         middleware.CORSConfig
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	catalog *service.CatalogService,
	sessions *service.SessionService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	h := NewCatalogHandler(catalog, sessions, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit, logger))
		if cfg.AuthDisabled {
			logger.Warn("authentication disabled, catalog API is open")
		} else {
			r.Use(middleware.Auth(middleware.StaticToken(cfg.AccessToken)))
		}

		r.Get("/start", h.Start)
		r.Post("/gender/{gender}", h.Gender)

		r.Post("/search/{query}", h.Search)
		r.Post("/search/{query}/{page}", h.SearchProducts)
		r.Post("/brand/{brand}", h.Brand)
		r.Post("/brand/{brand}/{page}", h.BrandProducts)
		r.Post("/kind/{kind}", h.Kind)
		r.Post("/kind/{kind}/{page}", h.KindProducts)
		r.Post("/session/{sessionid}", h.Session)
		r.Post("/session/{sessionid}/{page}", h.SessionProducts)

		r.Route("/product", func(r chi.Router) {
			r.Post("/list", h.ProductList)
			r.Post("/total", h.ProductTotal)
			r.Get("/{productid}", h.Product)
		})
	})

	return r
}
