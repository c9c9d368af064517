package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/swaadanna/storefront/internal/audit"
	"github.com/swaadanna/storefront/internal/cache"
	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/repository"
)

var (
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidOrder  = errors.New("invalid order")
)

// maxIDAttempts bounds retries when a generated order id collides.
const maxIDAttempts = 5

type OrderService struct {
	repo  repository.OrderRepository
	cache cache.OrderCache
	audit audit.Log
	log   zerolog.Logger
	sfg   singleflight.Group // Prevents cache stampede from pollers

	newID func() string
	now   func() time.Time
}

func NewOrderService(repo repository.OrderRepository, cache cache.OrderCache, auditLog audit.Log, log zerolog.Logger) *OrderService {
	return &OrderService{
		repo:  repo,
		cache: cache,
		audit: auditLog,
		log:   log.With().Str("component", "order_service").Logger(),
		newID: domain.NewOrderID,
		now:   time.Now,
	}
}

// CreateOrder assigns the id, status and email flag; whatever the caller put
// there is overwritten. total_amount is stored as sent.
func (s *OrderService) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusPending
	order.EmailSent = false
	if order.PaymentMethod == "" {
		order.PaymentMethod = domain.PaymentMethodUPI
	}

	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		order.OrderID = s.newID()
		order.Timestamp = s.now().UTC()
		err = s.repo.CreateOrder(ctx, order)
		if !errors.Is(err, repository.ErrDuplicateOrder) {
			break
		}
		s.log.Warn().Str("order_id", order.OrderID).Msg("order id collision, regenerating")
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.log.Info().
		Ctx(ctx).
		Str("order_id", order.OrderID).
		Int64("total_amount", order.TotalAmount).
		Int("lines", len(order.Products)).
		Msg("order created")
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	v, err, _ := s.sfg.Do(orderID, func() (interface{}, error) {
		order, err := s.cache.Get(ctx, orderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("order_id", orderID).Msg("cache get failed")
		}

		// The version must be read before the row: a write that commits after
		// this point bumps it and the fill below is refused.
		version, verr := s.cache.Version(ctx, orderID)
		if verr != nil {
			s.log.Warn().Err(verr).Str("order_id", orderID).Msg("cache version failed, skipping fill")
		}

		order, err = s.repo.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if verr != nil {
			return order, nil
		}

		cached := *order
		go func() {
			err := s.cache.Set(context.Background(), &cached, version)
			switch {
			case errors.Is(err, cache.ErrStaleFill):
				s.log.Debug().Str("order_id", cached.OrderID).Msg("order changed while loading, not cached")
			case err != nil:
				s.log.Warn().Err(err).Str("order_id", cached.OrderID).Msg("cache set failed")
			}
		}()

		return order, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers sharing a singleflight result must not share the pointer.
	order := *v.(*domain.Order)
	return &order, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	prev, err := s.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}
	s.invalidate(orderID)
	s.recordChanges(ctx, domain.ChangeSourceSingle, status, map[string]domain.OrderStatus{orderID: prev})

	return s.repo.GetOrderByID(ctx, orderID)
}

// BulkUpdateStatus applies status to every listed order or to none of them.
// It returns how many distinct orders were updated.
func (s *OrderService) BulkUpdateStatus(ctx context.Context, orderIDs []string, status domain.OrderStatus) (int, error) {
	if !status.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	ids := uniqueIDs(orderIDs)
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no order ids", ErrInvalidOrder)
	}

	previous, err := s.repo.BulkUpdateStatus(ctx, ids, status)
	if err != nil {
		return 0, err
	}
	s.invalidate(ids...)
	s.recordChanges(ctx, domain.ChangeSourceBulk, status, previous)

	s.log.Info().Ctx(ctx).Int("count", len(ids)).Str("status", status.String()).Msg("bulk status update")
	return len(ids), nil
}

// MarkEmailSent is idempotent; it reports whether this call flipped the flag.
func (s *OrderService) MarkEmailSent(ctx context.Context, orderID string) (bool, error) {
	flipped, err := s.repo.MarkEmailSent(ctx, orderID)
	if err != nil {
		return false, err
	}
	if flipped {
		s.invalidate(orderID)
	}
	return flipped, nil
}

func (s *OrderService) History(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.audit.ListByOrder(ctx, orderID)
}

// recordChanges appends the audit entries. The status change has already
// committed, so a failure here is logged and not returned.
func (s *OrderService) recordChanges(ctx context.Context, source string, to domain.OrderStatus, previous map[string]domain.OrderStatus) {
	at := s.now().UTC()
	changes := make([]domain.StatusChange, 0, len(previous))
	for id, from := range previous {
		if from == to {
			continue
		}
		changes = append(changes, domain.StatusChange{OrderID: id, From: from, To: to, Source: source, At: at})
	}
	if err := s.audit.Append(ctx, changes...); err != nil {
		s.log.Error().Err(err).Int("changes", len(changes)).Msg("audit append failed")
	}
}

func (s *OrderService) invalidate(orderIDs ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, orderIDs...); err != nil {
		s.log.Warn().Err(err).Strs("order_ids", orderIDs).Msg("cache invalidate failed")
	}
}

func validateOrder(o *domain.Order) error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: empty body", ErrInvalidOrder)
	case strings.TrimSpace(o.CustomerName) == "":
		return fmt.Errorf("%w: customer_name is required", ErrInvalidOrder)
	case !strings.Contains(o.CustomerEmail, "@"):
		return fmt.Errorf("%w: customer_email is invalid", ErrInvalidOrder)
	case strings.TrimSpace(o.Phone) == "":
		return fmt.Errorf("%w: phone is required", ErrInvalidOrder)
	case strings.TrimSpace(o.Address) == "":
		return fmt.Errorf("%w: address is required", ErrInvalidOrder)
	case len(o.Products) == 0:
		return fmt.Errorf("%w: products must not be empty", ErrInvalidOrder)
	case o.TotalAmount <= 0:
		return fmt.Errorf("%w: total_amount must be positive", ErrInvalidOrder)
	}
	for _, p := range o.Products {
		if p.Quantity < 1 {
			return fmt.Errorf("%w: quantity for %q must be at least 1", ErrInvalidOrder, p.Name)
		}
		if p.Price < 0 {
			return fmt.Errorf("%w: price for %q must not be negative", ErrInvalidOrder, p.Name)
		}
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
