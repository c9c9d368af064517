package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/domain"
)

type OrderService interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	BulkUpdateStatus(ctx context.Context, orderIDs []string, status domain.OrderStatus) (int, error)
	History(ctx context.Context, orderID string) ([]domain.StatusChange, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
	log     zerolog.Logger
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, log zerolog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		log:     log,
	}
}

type CreateOrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	Phone         string             `json:"phone"`
	Address       string             `json:"address"`
	Products      []domain.OrderItem `json:"products"`
	TotalAmount   int64              `json:"total_amount"`
	PaymentMethod string             `json:"payment_method"`
}

type UpdateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type BulkStatusRequest struct {
	OrderIDs []string           `json:"order_ids"`
	Status   domain.OrderStatus `json:"status"`
}

type BulkStatusResponse struct {
	Updated int `json:"updated"`
}

// POST /api/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.CreateOrder(ctx, &domain.Order{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Phone:         req.Phone,
		Address:       req.Address,
		Products:      req.Products,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusCreated, order)
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	respondJSON(w, h.log, http.StatusOK, orders)
}

// GET /api/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, h.log, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, order)
}

// PATCH /api/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, h.log, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, order)
}

// POST /api/orders/bulk-status
func (h *OrdersHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req BulkStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	updated, err := h.orders.BulkUpdateStatus(ctx, req.OrderIDs, req.Status)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, BulkStatusResponse{Updated: updated})
}

// GET /api/orders/{order_id}/history
func (h *OrdersHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	history, err := h.orders.History(ctx, orderID)
	if err != nil {
		handleServiceError(w, h.log, err)
		return
	}
	if history == nil {
		history = []domain.StatusChange{}
	}

	respondJSON(w, h.log, http.StatusOK, history)
}
