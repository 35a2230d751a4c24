package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/bookshop/internal/service"
	"github.com/utafrali/bookshop/pkg/health"
	"github.com/utafrali/bookshop/pkg/middleware"
)

const serviceName = "storefront"

// RouterConfig holds the router options that come from configuration.
type RouterConfig struct {
	PprofCIDRs []string
	CORS       middleware.CORSConfig
	// RequestTimeout bounds every request, mount included.
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	storefrontService *service.StorefrontService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	h := NewStorefrontHandler(storefrontService, logger)

	r.Route("/api/v1/views", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", h.Mount)

		r.Route("/{viewId}", func(r chi.Router) {
			r.Use(ValidViewID("viewId"))
			r.Use(middleware.ViewScope("viewId"))

			r.Get("/", h.GetView)
			r.Delete("/", h.Unmount)
			r.Put("/items/{index}/quantity", h.SetQuantity)
			r.Post("/items/{index}/purchase", h.ConfirmPurchase)
			r.Post("/discount/toggle", h.ToggleDiscount)
		})
	})

	return r
}
