package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/catalog"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Orders         OrderService
	Catalog        catalog.Catalog
	Logger         zerolog.Logger
	RequestTimeout time.Duration
	CORSOrigins    []string
	HealthChecks   map[string]HealthCheck
}

func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	ordersHandler := NewOrdersHandler(cfg.Orders, cfg.RequestTimeout, cfg.Logger)
	productHandler := NewProductHandler(cfg.Catalog, cfg.RequestTimeout, cfg.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(LoggerMiddleware(&cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.CORSOrigins))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", healthHandler(cfg.HealthChecks, cfg.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Post("/", ordersHandler.CreateOrder)
			r.Post("/bulk-status", ordersHandler.BulkUpdateStatus)
			r.Get("/{order_id}", ordersHandler.GetOrder)
			r.Patch("/{order_id}/status", ordersHandler.UpdateStatus)
			r.Get("/{order_id}/history", ordersHandler.History)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{product_id}", productHandler.GetProduct)
		})
	})

	return r
}

func healthHandler(checks map[string]HealthCheck, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result["status"] = "degraded"
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		respondJSON(w, logger, status, result)
	}
}
