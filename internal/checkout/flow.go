// Package checkout turns a cart and a filled form into a placed order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/cart"
	"github.com/swaadanna/storefront/internal/client"
	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/pricing"
	"github.com/swaadanna/storefront/internal/receipt"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubmitFailed     = errors.New("failed to place order")
	ErrSubmitInProgress = errors.New("order submission already in progress")
	ErrAlreadySubmitted = errors.New("order already placed")
)

// DefaultClearDelay is how long the cart survives after a successful order.
const DefaultClearDelay = 1500 * time.Millisecond

type State int

const (
	StateFilling State = iota
	StateSubmitting
	StateSucceeded
	StateRedirecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateRedirecting:
		return "redirecting"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notifier shows a toast: a title and an optional description.
type Notifier func(kind NoticeKind, title, description string)

type OrderCreator interface {
	CreateOrder(ctx context.Context, req client.OrderRequest) (*domain.Order, error)
}

type Result struct {
	Order *domain.Order
	// Redirect is the confirmation page for the new order.
	Redirect        string
	OperatorMessage string
	// Cleared is closed once the delayed cart clear has run.
	Cleared <-chan struct{}
}

type Option func(*Flow)

func WithClearDelay(d time.Duration) Option {
	return func(f *Flow) { f.clearDelay = d }
}

func WithNotifier(n Notifier) Option {
	return func(f *Flow) { f.notify = n }
}

func WithLogger(log zerolog.Logger) Option {
	return func(f *Flow) { f.log = log }
}

func WithStateObserver(fn func(from, to State)) Option {
	return func(f *Flow) { f.observe = fn }
}

type Flow struct {
	mu          sync.Mutex
	cart        *cart.Store
	api         OrderCreator
	calc        *pricing.Calculator
	notify      Notifier
	observe     func(from, to State)
	log         zerolog.Logger
	clearDelay  time.Duration
	afterFunc   func(d time.Duration, fn func())
	state       State
	orderPlaced bool
}

func NewFlow(c *cart.Store, api OrderCreator, opts ...Option) *Flow {
	f := &Flow{
		cart:       c,
		api:        api,
		calc:       pricing.New(),
		notify:     func(NoticeKind, string, string) {},
		observe:    func(State, State) {},
		log:        zerolog.Nop(),
		clearDelay: DefaultClearDelay,
		afterFunc:  func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		state:      StateFilling,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// OrderPlaced stays true after success so the emptied cart does not bounce
// the customer back to the catalog.
func (f *Flow) OrderPlaced() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orderPlaced
}

// Guard reports ErrEmptyCart when the page should route to the catalog.
func (f *Flow) Guard() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.orderPlaced && f.cart.IsEmpty() {
		return ErrEmptyCart
	}
	return nil
}

// Quote prices the current cart the way the order will be charged.
func (f *Flow) Quote() pricing.Quote {
	return f.calc.Quote(pricing.Lines(f.cart.Items())...)
}

// BuildRequest assembles the order payload from the form and the cart.
func (f *Flow) BuildRequest(form Form) client.OrderRequest {
	items := f.cart.Items()
	products := make([]domain.OrderItem, len(items))
	for i, it := range items {
		products[i] = it.ToOrderItem()
	}

	return client.OrderRequest{
		CustomerName:  form.Name,
		CustomerEmail: form.Email,
		Phone:         form.Phone,
		Address:       form.ShippingAddress(),
		Products:      products,
		TotalAmount:   f.calc.Quote(pricing.Lines(items)...).Total,
		PaymentMethod: domain.PaymentMethodUPI,
	}
}

func (f *Flow) Submit(ctx context.Context, form Form) (*Result, error) {
	f.mu.Lock()
	switch {
	case f.state == StateSubmitting:
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	case f.orderPlaced:
		f.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if err := form.Validate(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.cart.IsEmpty() {
		f.mu.Unlock()
		f.notify(NoticeError, "Your cart is empty", "")
		return nil, ErrEmptyCart
	}
	req := f.BuildRequest(form)
	f.setState(StateSubmitting)
	f.mu.Unlock()

	order, err := f.api.CreateOrder(ctx, req)
	if err != nil {
		f.mu.Lock()
		f.setState(StateFailed)
		f.setState(StateFilling)
		f.mu.Unlock()

		f.log.Error().Err(err).Msg("order submission failed")
		f.notify(NoticeError, "Failed to place order. Please try again.", "")
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	f.mu.Lock()
	f.setState(StateSucceeded)
	f.orderPlaced = true
	f.mu.Unlock()

	f.notify(NoticeSuccess, "Order placed successfully!", "Check your email for confirmation.")
	f.log.Info().Str("order_id", order.OrderID).Int64("total_amount", order.TotalAmount).Msg("order placed")

	cleared := make(chan struct{})
	f.afterFunc(f.clearDelay, func() {
		defer close(cleared)
		if err := f.cart.Clear(context.Background()); err != nil {
			f.log.Warn().Err(err).Msg("failed to clear cart after order")
		}
	})

	f.mu.Lock()
	f.setState(StateRedirecting)
	f.mu.Unlock()

	return &Result{
		Order:           order,
		Redirect:        "/order-success/" + order.OrderID,
		OperatorMessage: ComposeOperatorMessage(order),
		Cleared:         cleared,
	}, nil
}

// setState must be called with f.mu held; observers must not call back into the Flow.
func (f *Flow) setState(to State) {
	from := f.state
	f.state = to
	f.observe(from, to)
}

// ComposeOperatorMessage is the summary an operator relays to the customer.
func ComposeOperatorMessage(order *domain.Order) string {
	return receipt.OperatorMessage(order, nil)
}
