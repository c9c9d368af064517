package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swaadanna/storefront/internal/catalog"
	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/repository"
	"github.com/swaadanna/storefront/internal/service"
)

// --- Mocks ---

type mockOrderService struct {
	order   *domain.Order
	orders  []*domain.Order
	history []domain.StatusChange
	updated int
	err     error

	gotOrder  *domain.Order
	gotIDs    []string
	gotStatus domain.OrderStatus
}

func (m *mockOrderService) CreateOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	m.gotOrder = order
	if m.err != nil {
		return nil, m.err
	}
	order.OrderID = "ORD-1A2B3C4D"
	order.Status = domain.OrderStatusPending
	return order, nil
}

func (m *mockOrderService) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	m.gotIDs = []string{orderID}
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *mockOrderService) ListOrders(context.Context) ([]*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

func (m *mockOrderService) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	m.gotIDs = []string{orderID}
	m.gotStatus = status
	if m.err != nil {
		return nil, m.err
	}
	o := *m.order
	o.Status = status
	return &o, nil
}

func (m *mockOrderService) BulkUpdateStatus(_ context.Context, orderIDs []string, status domain.OrderStatus) (int, error) {
	m.gotIDs = orderIDs
	m.gotStatus = status
	if m.err != nil {
		return 0, m.err
	}
	return m.updated, nil
}

func (m *mockOrderService) History(_ context.Context, orderID string) ([]domain.StatusChange, error) {
	m.gotIDs = []string{orderID}
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

type mockCatalog struct {
	products []domain.Product
	gotOpts  catalog.ListOptions
	err      error
}

func (m *mockCatalog) ListProducts(_ context.Context, opts catalog.ListOptions) ([]domain.Product, error) {
	m.gotOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

// --- helpers ---

func newTestRouter(orders *mockOrderService, cat *mockCatalog) http.Handler {
	if cat == nil {
		cat = &mockCatalog{}
	}
	return NewRouter(RouterConfig{
		Orders:         orders,
		Catalog:        cat,
		Logger:         zerolog.Nop(),
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"http://localhost:3000"},
	})
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		OrderID:       "ORD-1A2B3C4D",
		CustomerName:  "Asha Rawat",
		CustomerEmail: "asha@example.com",
		Phone:         "9876543210",
		Address:       "12 Mall Road, Nainital - 263001",
		Products:      []domain.OrderItem{{ProductID: 1, Name: "Mango Pickle", Quantity: 2, Price: 200}},
		TotalAmount:   590,
		PaymentMethod: domain.PaymentMethodUPI,
		Status:        domain.OrderStatusPending,
		Timestamp:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// --- Orders ---

func TestCreateOrder_Created(t *testing.T) {
	svc := &mockOrderService{}
	h := newTestRouter(svc, nil)

	body := `{"customer_name":"Asha","customer_email":"asha@example.com","phone":"98","address":"12 Mall Road, Nainital - 263001",
		"products":[{"product_id":1,"name":"Mango Pickle","quantity":2,"price":200}],"total_amount":590,"payment_method":"upi"}`
	rec := serve(h, http.MethodPost, "/api/orders", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "ORD-1A2B3C4D", got.OrderID)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.False(t, got.EmailSent)

	require.NotNil(t, svc.gotOrder)
	assert.Equal(t, int64(590), svc.gotOrder.TotalAmount)
	assert.Len(t, svc.gotOrder.Products, 1)
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	h := newTestRouter(&mockOrderService{}, nil)

	rec := serve(h, http.MethodPost, "/api/orders", `{"customer_name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
}

func TestCreateOrder_ValidationError(t *testing.T) {
	svc := &mockOrderService{err: fmt.Errorf("%w: products must not be empty", service.ErrInvalidOrder)}
	h := newTestRouter(svc, nil)

	rec := serve(h, http.MethodPost, "/api/orders", `{"customer_name":"Asha"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "invalid_order", resp.Code)
	assert.Contains(t, resp.Error, "products must not be empty")
}

func TestListOrders_EmptyIsArray(t *testing.T) {
	h := newTestRouter(&mockOrderService{}, nil)

	rec := serve(h, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListOrders_InternalError(t *testing.T) {
	h := newTestRouter(&mockOrderService{err: errors.New("db down")}, nil)

	rec := serve(h, http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "internal_error", resp.Code)
	assert.NotContains(t, resp.Error, "db down")
}

func TestGetOrder_Success(t *testing.T) {
	svc := &mockOrderService{order: sampleOrder()}
	h := newTestRouter(svc, nil)

	rec := serve(h, http.MethodGet, "/api/orders/ORD-1A2B3C4D", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ORD-1A2B3C4D"}, svc.gotIDs)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "ORD-1A2B3C4D", got["order_id"])
	assert.Equal(t, false, got["email_sent"])
	assert.Equal(t, "2026-03-01T10:00:00Z", got["timestamp"])
}

func TestGetOrder_NotFound(t *testing.T) {
	h := newTestRouter(&mockOrderService{err: repository.ErrOrderNotFound}, nil)

	rec := serve(h, http.MethodGet, "/api/orders/ORD-NOPE0000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order_not_found", decodeError(t, rec).Code)
}

func TestUpdateStatus_Success(t *testing.T) {
	svc := &mockOrderService{order: sampleOrder()}
	h := newTestRouter(svc, nil)

	rec := serve(h, http.MethodPatch, "/api/orders/ORD-1A2B3C4D/status", `{"status":"Accept"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.OrderStatusAccept, svc.gotStatus)

	var got domain.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, domain.OrderStatusAccept, got.Status)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc := &mockOrderService{err: service.ErrInvalidStatus}
	h := newTestRouter(svc, nil)

	rec := serve(h, http.MethodPatch, "/api/orders/ORD-1A2B3C4D/status", `{"status":"Shipped"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_status", decodeError(t, rec).Code)
}

func TestBulkUpdateStatus_Success(t *testing.T) {
	svc := &mockOrderService{updated: 2}
	h := newTestRouter(svc, nil)

	rec := serve(h, http.MethodPost, "/api/orders/bulk-status",
		`{"order_ids":["ORD-1","ORD-2"],"status":"Delivered"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())
	assert.Equal(t, []string{"ORD-1", "ORD-2"}, svc.gotIDs)
	assert.Equal(t, domain.OrderStatusDelivered, svc.gotStatus)
}

func TestBulkUpdateStatus_UnknownID(t *testing.T) {
	svc := &mockOrderService{err: fmt.Errorf("%w: ORD-2", repository.ErrOrderNotFound)}
	h := newTestRouter(svc, nil)

	rec := serve(h, http.MethodPost, "/api/orders/bulk-status",
		`{"order_ids":["ORD-1","ORD-2"],"status":"Delivered"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory_EmptyIsArray(t *testing.T) {
	h := newTestRouter(&mockOrderService{}, nil)

	rec := serve(h, http.MethodGet, "/api/orders/ORD-1A2B3C4D/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTimeoutMapsToGatewayTimeout(t *testing.T) {
	h := newTestRouter(&mockOrderService{err: fmt.Errorf("query: %w", context.DeadlineExceeded)}, nil)

	rec := serve(h, http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

// --- Products ---

func TestListProducts_PassesFilters(t *testing.T) {
	cat := &mockCatalog{products: []domain.Product{{ID: 5, Name: "Wild Forest Honey", Category: "Honey", Price: 550}}}
	h := newTestRouter(&mockOrderService{}, cat)

	rec := serve(h, http.MethodGet, "/api/products?category=Honey&sort=price_asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, catalog.ListOptions{Category: "Honey", Sort: "price_asc"}, cat.gotOpts)

	var got []domain.Product
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Wild Forest Honey", got[0].Name)
}

func TestGetProduct(t *testing.T) {
	cat := &mockCatalog{products: []domain.Product{{ID: 1, Name: "Mango Pickle"}}}
	h := newTestRouter(&mockOrderService{}, cat)

	rec := serve(h, http.MethodGet, "/api/products/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/api/products/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product_not_found", decodeError(t, rec).Code)

	rec = serve(h, http.MethodGet, "/api/products/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Health & middleware ---

func TestHealth(t *testing.T) {
	h := NewRouter(RouterConfig{
		Orders:  &mockOrderService{},
		Catalog: &mockCatalog{},
		Logger:  zerolog.Nop(),
		HealthChecks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		},
	})
	rec := serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","postgres":"ok"}`, rec.Body.String())

	h = NewRouter(RouterConfig{
		Orders:  &mockOrderService{},
		Catalog: &mockCatalog{},
		Logger:  zerolog.Nop(),
		HealthChecks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	rec = serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","redis":"connection refused"}`, rec.Body.String())
}

func TestCORS_AllowedOrigin(t *testing.T) {
	h := newTestRouter(&mockOrderService{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestCORS_UnknownOriginGetsNoHeaders(t *testing.T) {
	h := newTestRouter(&mockOrderService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORSMiddleware([]string{"*"})(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://www.swaadanna.shop")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://www.swaadanna.shop", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestRouter(&mockOrderService{}, nil)

	rec := serve(h, http.MethodGet, "/api/orders", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestLoggerMiddleware_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, zerolog.Nop(), http.StatusNotFound, "order_not_found", "order not found")
	})

	rec := httptest.NewRecorder()
	LoggerMiddleware(&logger)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/x", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/orders/x", entry["url"])
	assert.Equal(t, "request completed", entry["message"])
}

func TestRespondJSON_EncodeFailureUsesGivenLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	rec := httptest.NewRecorder()
	respondJSON(rec, logger, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "failed to encode response", entry["message"])
}
