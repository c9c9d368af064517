// Package admin is the order management console behind the admin login.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/pricing"
	"github.com/swaadanna/storefront/internal/receipt"
	"github.com/swaadanna/storefront/internal/storage"
)

// AuthKey is the storage flag set after a successful login.
const AuthKey = "isAdminAuthenticated"

// StatusAll disables the status filter.
const StatusAll = "All"

const dateLayout = "2006-01-02"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotAuthenticated   = errors.New("admin login required")
	ErrUnknownOrder       = errors.New("order not in console")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrEmptySelection     = errors.New("no orders selected")
)

// API is the slice of the Order API the console drives.
type API interface {
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	BulkUpdateStatus(ctx context.Context, orderIDs []string, status domain.OrderStatus) (int, error)
	History(ctx context.Context, orderID string) ([]domain.StatusChange, error)
}

// Credentials is the single admin account. PasswordHash is a bcrypt hash;
// when empty nobody can log in.
type Credentials struct {
	Username     string
	PasswordHash string
}

// Filter narrows the order list. Zero values match everything.
type Filter struct {
	Status string
	Date   string
	Query  string
}

type Option func(*Console)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Console) { c.log = log }
}

type Console struct {
	api   API
	store storage.Storage
	creds Credentials
	calc  *pricing.Calculator
	log   zerolog.Logger

	mu       sync.Mutex
	orders   []*domain.Order
	filter   Filter
	pending  map[string]domain.OrderStatus
	selected []string
}

func NewConsole(api API, store storage.Storage, creds Credentials, opts ...Option) *Console {
	c := &Console{
		api:     api,
		store:   store,
		creds:   creds,
		calc:    pricing.New(),
		log:     zerolog.Nop(),
		pending: make(map[string]domain.OrderStatus),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) Login(ctx context.Context, username, password string) error {
	if c.creds.PasswordHash == "" || username != c.creds.Username {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.creds.PasswordHash), []byte(password)); err != nil {
		c.log.Warn().Str("username", username).Msg("admin login rejected")
		return ErrInvalidCredentials
	}
	if err := c.store.Set(ctx, AuthKey, "true"); err != nil {
		return fmt.Errorf("save admin session: %w", err)
	}
	return nil
}

// Logout clears the session flag and everything loaded under it.
func (c *Console) Logout(ctx context.Context) error {
	if err := c.store.Remove(ctx, AuthKey); err != nil {
		return fmt.Errorf("clear admin session: %w", err)
	}
	c.mu.Lock()
	c.orders = nil
	c.pending = make(map[string]domain.OrderStatus)
	c.selected = nil
	c.mu.Unlock()
	return nil
}

func (c *Console) Authenticated(ctx context.Context) (bool, error) {
	v, err := c.store.Get(ctx, AuthKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read admin session: %w", err)
	}
	return v == "true", nil
}

// Load fetches every order once. It refuses to touch the API without a session.
func (c *Console) Load(ctx context.Context) error {
	ok, err := c.Authenticated(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthenticated
	}

	orders, err := c.api.ListOrders(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("error fetching orders")
		return fmt.Errorf("load orders: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = orders
	return nil
}

func (c *Console) SetFilter(f Filter) error {
	if f.Status != "" && f.Status != StatusAll && !domain.OrderStatus(f.Status).IsValid() {
		return ErrInvalidStatus
	}
	if f.Date != "" {
		if _, err := time.Parse(dateLayout, f.Date); err != nil {
			return ErrInvalidDate
		}
	}
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	return nil
}

// Orders returns the filtered view, newest first.
func (c *Console) Orders() []domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	matched := c.filtered()
	out := make([]domain.Order, len(matched))
	for i, o := range matched {
		out[i] = *o
	}
	return out
}

// filtered must be called with c.mu held.
func (c *Console) filtered() []*domain.Order {
	query := strings.ToLower(c.filter.Query)
	out := make([]*domain.Order, 0, len(c.orders))
	for _, o := range c.orders {
		if c.filter.Status != "" && c.filter.Status != StatusAll && string(o.Status) != c.filter.Status {
			continue
		}
		if c.filter.Date != "" && o.Timestamp.UTC().Format(dateLayout) != c.filter.Date {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(o.OrderID), query) {
			continue
		}
		out = append(out, o)
	}
	slices.SortStableFunc(out, func(a, b *domain.Order) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// find must be called with c.mu held.
func (c *Console) find(orderID string) *domain.Order {
	for _, o := range c.orders {
		if o.OrderID == orderID {
			return o
		}
	}
	return nil
}

// StageStatus remembers a status choice for a row without sending it.
func (c *Console) StageStatus(orderID string, status domain.OrderStatus) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.find(orderID) == nil {
		return ErrUnknownOrder
	}
	c.pending[orderID] = status
	return nil
}

func (c *Console) HasPendingChange(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[orderID]
	return ok
}

// PendingStatus is the staged status, or the current one when nothing is staged.
func (c *Console) PendingStatus(orderID string) (domain.OrderStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.pending[orderID]; ok {
		return s, true
	}
	if o := c.find(orderID); o != nil {
		return o.Status, false
	}
	return "", false
}

// SaveStatus sends the staged status for one order. Without a staged change
// it does nothing. On failure the change stays staged.
func (c *Console) SaveStatus(ctx context.Context, orderID string) error {
	c.mu.Lock()
	status, ok := c.pending[orderID]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	if _, err := c.api.UpdateStatus(ctx, orderID, status); err != nil {
		c.log.Error().Err(err).Str("order_id", orderID).Msg("failed to update status")
		return fmt.Errorf("update status of %s: %w", orderID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if o := c.find(orderID); o != nil {
		o.Status = status
	}
	// A different status staged while the request was in flight stays pending.
	if c.pending[orderID] == status {
		delete(c.pending, orderID)
	}
	return nil
}

func (c *Console) ToggleSelect(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.selected, orderID); i >= 0 {
		c.selected = slices.Delete(c.selected, i, i+1)
		return
	}
	c.selected = append(c.selected, orderID)
}

// ToggleSelectAll clears the selection when every visible order is already
// selected and otherwise selects exactly the visible orders.
func (c *Console) ToggleSelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	visible := c.filtered()
	all := true
	for _, o := range visible {
		if !slices.Contains(c.selected, o.OrderID) {
			all = false
			break
		}
	}
	if all {
		c.selected = nil
		return
	}
	c.selected = make([]string, len(visible))
	for i, o := range visible {
		c.selected[i] = o.OrderID
	}
}

func (c *Console) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.selected)
}

// BulkUpdate moves every selected order to status in one request. Nothing
// changes locally unless the server accepts the whole batch.
func (c *Console) BulkUpdate(ctx context.Context, status domain.OrderStatus) (int, error) {
	if !status.IsValid() {
		return 0, ErrInvalidStatus
	}
	ids := c.Selection()
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}

	if _, err := c.api.BulkUpdateStatus(ctx, ids, status); err != nil {
		c.log.Error().Err(err).Int("count", len(ids)).Msg("bulk update failed")
		return 0, fmt.Errorf("bulk update: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if o := c.find(id); o != nil {
			o.Status = status
		}
	}
	c.selected = nil
	c.log.Info().Int("count", len(ids)).Str("status", string(status)).Msg("bulk status update")
	return len(ids), nil
}

// Detail is the read-only invoice for one loaded order.
func (c *Console) Detail(orderID string) (receipt.Invoice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := c.find(orderID)
	if o == nil {
		return receipt.Invoice{}, ErrUnknownOrder
	}
	return receipt.NewInvoice(o, c.calc), nil
}

func FormatInvoice(inv receipt.Invoice) string {
	return inv.Format()
}

func (c *Console) History(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	ok, err := c.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthenticated
	}
	changes, err := c.api.History(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", orderID, err)
	}
	return changes, nil
}
