// Package cart holds the customer's cart: one line per product, persisted to
// storage after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/pricing"
	"github.com/swaadanna/storefront/internal/storage"
)

// StorageKey is where the serialized cart lives.
const StorageKey = "cart"

type NoticeKind string

const (
	NoticeAdded   NoticeKind = "added"
	NoticeUpdated NoticeKind = "updated"
	NoticeRemoved NoticeKind = "removed"
)

// Notifier receives the human readable messages a UI would show as toasts.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

type NotifierFunc func(kind NoticeKind, message string)

func (f NotifierFunc) Notify(kind NoticeKind, message string) { f(kind, message) }

type nopNotifier struct{}

func (nopNotifier) Notify(NoticeKind, string) {}

type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

func WithCalculator(c *pricing.Calculator) Option {
	return func(s *Store) { s.calc = c }
}

type Store struct {
	mu       sync.Mutex
	items    []domain.CartItem
	storage  storage.Storage
	notifier Notifier
	calc     *pricing.Calculator
	log      zerolog.Logger
}

// NewStore loads the saved cart. Missing or unreadable data gives an empty cart.
func NewStore(ctx context.Context, st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage:  st,
		notifier: nopNotifier{},
		calc:     pricing.New(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []domain.CartItem {
	raw, err := s.storage.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("error reading cart from storage")
		return nil
	}

	var saved []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		s.log.Error().Err(err).Msg("error parsing saved cart")
		return nil
	}

	// Data written by another client may break the one-line-per-product rule.
	items := make([]domain.CartItem, 0, len(saved))
	for _, it := range saved {
		if it.Quantity < 1 {
			continue
		}
		if i := indexOf(items, it.ID); i >= 0 {
			items[i].Quantity += it.Quantity
			continue
		}
		items = append(items, it)
	}
	return items
}

// Add puts one unit of the product in the cart.
func (s *Store) Add(ctx context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexOf(s.items, p.ID); i >= 0 {
		s.items[i].Quantity++
		s.notifier.Notify(NoticeUpdated, fmt.Sprintf("Updated quantity for %s", p.Name))
	} else {
		s.items = append(s.items, domain.CartItem{Product: p, Quantity: 1})
		s.notifier.Notify(NoticeAdded, fmt.Sprintf("%s added to cart", p.Name))
	}
	return s.save(ctx)
}

// Remove drops the product's line. The notification fires even when there
// was no such line.
func (s *Store) Remove(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(ctx, productID)
}

func (s *Store) remove(ctx context.Context, productID int64) error {
	if i := indexOf(s.items, productID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	s.notifier.Notify(NoticeRemoved, "Item removed from cart")
	return s.save(ctx)
}

// UpdateQuantity sets the line's quantity; anything below 1 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 1 {
		return s.remove(ctx, productID)
	}
	if i := indexOf(s.items, productID); i >= 0 {
		s.items[i].Quantity = quantity
	}
	return s.save(ctx)
}

// Clear empties the cart and deletes the stored key rather than writing an
// empty list.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if err := s.storage.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("remove saved cart: %w", err)
	}
	return nil
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Total is the cart subtotal, before shipping and tax.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calc.Subtotal(pricing.Lines(s.items)...)
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

func (s *Store) save(ctx context.Context) error {
	items := s.items
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.storage.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func indexOf(items []domain.CartItem, productID int64) int {
	for i, it := range items {
		if it.ID == productID {
			return i
		}
	}
	return -1
}
