// Package client talks to the storefront Order API over HTTP/JSON.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/swaadanna/storefront/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

const userAgent = "storefront-client/1.0"

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	}
	return nil
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	Phone         string             `json:"phone"`
	Address       string             `json:"address"`
	Products      []domain.OrderItem `json:"products"`
	TotalAmount   int64              `json:"total_amount"`
	PaymentMethod string             `json:"payment_method"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a client for baseURL, which already carries the /api prefix.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		// No client-wide timeout: callers bound each call with their context.
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	var orders []*domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	body := map[string]domain.OrderStatus{"status": status}
	var order domain.Order
	if err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) BulkUpdateStatus(ctx context.Context, orderIDs []string, status domain.OrderStatus) (int, error) {
	body := struct {
		OrderIDs []string           `json:"order_ids"`
		Status   domain.OrderStatus `json:"status"`
	}{orderIDs, status}
	var resp struct {
		Updated int `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders/bulk-status", body, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (c *Client) History(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	var history []domain.StatusChange
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/history", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *Client) ListProducts(ctx context.Context, category, sort string) ([]domain.Product, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var products []domain.Product
	if err := c.do(ctx, http.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatInt(id, 10), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr) // best effort
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
