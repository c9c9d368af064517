package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/catalog"
)

type ProductHandler struct {
	catalog catalog.Catalog
	timeout time.Duration
	log     zerolog.Logger
}

func NewProductHandler(c catalog.Catalog, timeout time.Duration, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: c,
		timeout: timeout,
		log:     log,
	}
}

// GET /api/products?category=Honey&sort=price_asc
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx, catalog.ListOptions{
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
	})
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, products)
}

// GET /api/products/{product_id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, h.log, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, product)
}
