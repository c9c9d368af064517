// Package poller follows a freshly placed order until its confirmation email
// is reported as sent.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/pricing"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 3
)

var ErrAlreadyStarted = errors.New("poller already started")

type State int

const (
	StateLoading State = iota
	StateLoaded
	StatePolling
	StateStable
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StatePolling:
		return "polling"
	case StateStable:
		return "stable"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// View is what the confirmation page renders.
type View struct {
	State State
	Order *domain.Order
	Quote pricing.Quote
	Err   error
}

type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// Ticker is the part of time.Ticker the poller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithMaxAttempts sets how many re-fetches happen before email_sent is assumed.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) { p.maxAttempts = n }
}

func WithLogger(log zerolog.Logger) Option {
	return func(p *Poller) { p.log = log }
}

// WithObserver registers fn for every view change. Calls are serialized.
func WithObserver(fn func(View)) Option {
	return func(p *Poller) { p.observers = append(p.observers, fn) }
}

func withTicker(fn func(time.Duration) Ticker) Option {
	return func(p *Poller) { p.newTicker = fn }
}

type Poller struct {
	api         OrderFetcher
	orderID     string
	interval    time.Duration
	maxAttempts int
	newTicker   func(time.Duration) Ticker
	calc        *pricing.Calculator
	log         zerolog.Logger
	observers   []func(View)

	mu       sync.Mutex
	notifyMu sync.Mutex
	view     View
	gen      uint64
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func New(api OrderFetcher, orderID string, opts ...Option) *Poller {
	p := &Poller{
		api:         api,
		orderID:     orderID,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		newTicker:   func(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} },
		calc:        pricing.New(),
		log:         zerolog.Nop(),
		view:        View{State: StateLoading},
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Str("order_id", orderID).Logger()
	return p
}

// Start loads the order and, unless its email is already out, begins polling
// in the background. A failed initial load leaves the poller in StateError.
// Start on a poller that was already stopped does nothing.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	gen := p.gen
	p.mu.Unlock()

	p.update(gen, func(v *View) bool {
		v.State = StateLoading
		return true
	})

	order, err := p.api.GetOrder(ctx, p.orderID)
	if err != nil {
		p.log.Error().Err(err).Msg("error loading order")
		p.update(gen, func(v *View) bool {
			v.State = StateError
			v.Err = err
			return true
		})
		p.teardown()
		return fmt.Errorf("load order %s: %w", p.orderID, err)
	}

	p.update(gen, func(v *View) bool {
		v.State = StateLoaded
		v.Order = clone(order)
		v.Quote = p.quote(order)
		return true
	})
	if order.EmailSent {
		p.update(gen, func(v *View) bool {
			v.State = StateStable
			return true
		})
		p.teardown()
		return nil
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.update(gen, func(v *View) bool {
		v.State = StatePolling
		return true
	})
	go p.run(ctx, p.newTicker(p.interval), gen)
	return nil
}

// Stop ends polling. Responses still in flight are dropped. Safe to call more than once.
func (p *Poller) Stop() {
	p.teardown()
}

// Done is closed once the poller has stopped for any reason.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Poller) run(ctx context.Context, t Ticker, gen uint64) {
	defer t.Stop()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			p.teardown()
			return
		case <-t.C():
			attempt++
			if attempt > p.maxAttempts {
				p.log.Info().Int("attempts", p.maxAttempts).Msg("email status not confirmed, assuming sent")
				p.update(gen, func(v *View) bool {
					if v.State != StatePolling {
						return false
					}
					v.State = StateStable
					v.Order.EmailSent = true
					return true
				})
				p.teardown()
				return
			}
			go p.refetch(ctx, gen, attempt)
		}
	}
}

func (p *Poller) refetch(ctx context.Context, gen uint64, attempt int) {
	order, err := p.api.GetOrder(ctx, p.orderID)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Int("attempt", attempt).Msg("error polling order")
		}
		return
	}

	stable := false
	p.update(gen, func(v *View) bool {
		if v.State != StatePolling {
			return false
		}
		v.Order = clone(order)
		v.Quote = p.quote(order)
		if order.EmailSent {
			v.State = StateStable
			stable = true
		}
		return true
	})
	if stable {
		p.log.Debug().Int("attempt", attempt).Msg("confirmation email sent")
		p.teardown()
	}
}

// update mutates the view if gen is still current and fans the result out
// to observers in order.
func (p *Poller) update(gen uint64, fn func(v *View) bool) bool {
	p.mu.Lock()
	if gen != p.gen || !fn(&p.view) {
		p.mu.Unlock()
		return false
	}
	v := p.snapshot()
	p.notifyMu.Lock()
	p.mu.Unlock()

	defer p.notifyMu.Unlock()
	for _, fn := range p.observers {
		fn(v)
	}
	return true
}

func (p *Poller) teardown() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.gen++
		p.stopped = true
		cancel := p.cancel
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		close(p.done)
	})
}

// snapshot must be called with p.mu held.
func (p *Poller) snapshot() View {
	v := p.view
	if v.Order != nil {
		v.Order = clone(v.Order)
	}
	return v
}

func clone(o *domain.Order) *domain.Order {
	c := *o
	c.Products = append([]domain.OrderItem(nil), o.Products...)
	return &c
}

func (p *Poller) quote(o *domain.Order) pricing.Quote {
	return p.calc.Quote(pricing.Lines(o.Products)...)
}
