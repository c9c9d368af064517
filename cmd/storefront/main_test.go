package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swaadanna/storefront/internal/client"
	"github.com/swaadanna/storefront/internal/config"
	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/storage"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mango := domain.Product{ID: 1, Name: "Mango Pickle", Price: 350, Weight: "500g", Category: "Pickle"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Pickle", r.URL.Query().Get("category"))
		_ = json.NewEncoder(w).Encode([]domain.Product{mango})
	})
	mux.HandleFunc("GET /api/products/1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(mango)
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		var req client.OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.Order{
			OrderID:       "ORD-0000BEEF",
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Products:      req.Products,
			TotalAmount:   req.TotalAmount,
			PaymentMethod: req.PaymentMethod,
			Status:        domain.OrderStatusPending,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	srv := fakeAPI(t)
	out := &bytes.Buffer{}
	return &app{
		cfg:   &config.ClientConfig{CartClearDelay: time.Millisecond, AdminUsername: "admin"},
		log:   zerolog.Nop(),
		api:   client.New(srv.URL + "/api"),
		store: storage.NewMemoryStorage(),
		out:   out,
	}, out
}

func TestRun_Usage(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	assert.ErrorIs(t, a.run(ctx, nil), errUsage)
	assert.ErrorIs(t, a.run(ctx, []string{"frobnicate"}), errUsage)
	assert.ErrorIs(t, a.run(ctx, []string{"add"}), errUsage)
	assert.ErrorIs(t, a.run(ctx, []string{"add", "mango"}), errUsage)
}

func TestRun_Products(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, a.run(context.Background(), []string{"products", "--category", "Pickle"}))
	assert.Contains(t, out.String(), "Mango Pickle")
	assert.Contains(t, out.String(), "₹350")
}

func TestRun_CartThenCheckout(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"add", "1"}))
	require.NoError(t, a.run(ctx, []string{"add", "1"}))
	assert.Contains(t, out.String(), "Updated quantity for Mango Pickle")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"cart"}))
	// 700 + 100 + 144
	assert.Contains(t, out.String(), "total ₹944")

	out.Reset()
	err := a.run(ctx, []string{"checkout",
		"--name", "Asha", "--email", "asha@example.com", "--phone", "98765",
		"--address", "12 Mall Road", "--city", "Nainital", "--pincode", "263001",
		"--track=false",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Order placed successfully!")
	assert.Contains(t, out.String(), "New order ORD-0000BEEF")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"cart"}))
	assert.Contains(t, out.String(), "Your cart is empty")
}

func TestRun_AdminRequiresLogin(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.run(context.Background(), []string{"admin", "list"}))
}
