// Package risk implements the risk controllers of §4.4: per-symbol circuit
// breakers, the hedge exposure tracker, and the cross-currency price-band
// gate, composed behind Controllers into the matching.RiskGate the engine
// consults before admitting an order and after every trade.
package risk

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"brokerageProject/internal/book"
	"brokerageProject/internal/catalog"
	"brokerageProject/internal/config"
	"brokerageProject/internal/money"
)

// State is a circuit breaker's position in the §4.4.1 state machine.
type State uint8

const (
	Normal State = iota
	LimitUp
	LimitDown
	Halted
)

func (s State) String() string {
	switch s {
	case Normal:
		return "NORMAL"
	case LimitUp:
		return "LIMIT_UP"
	case LimitDown:
		return "LIMIT_DOWN"
	case Halted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// StateChange is emitted on every transition, grounded on §5's "circuit
// breaker callbacks ... re-implement as typed channels" guidance.
type StateChange struct {
	Symbol    string
	From      State
	To        State
	Price     money.Amount
	Timestamp time.Time
}

// CircuitBreakerConfig holds the band percentages and halt duration a
// breaker enforces. Zero fields are filled from internal/config defaults by
// NewCircuitBreaker.
type CircuitBreakerConfig struct {
	Level1          float64
	Level2          float64
	Level3          float64
	HaltDuration    time.Duration
	RefreshInterval time.Duration
}

type symbolState struct {
	referencePrice money.Amount
	state          State
	haltUntil      time.Time
	// limiter bounds opposite-side order flow admitted while this symbol
	// sits in LimitUp/LimitDown; nil while Normal or Halted.
	limiter *rate.Limiter
}

// Catalog is the subset of catalog.Catalog the breaker needs to refresh its
// per-symbol reference price.
type Catalog interface {
	Get(symbol string) (catalog.Product, bool)
	All() []catalog.Product
}

// StatePublisher fans a circuit breaker transition out to external
// subscribers. Optional: nil by default.
type StatePublisher interface {
	PublishCircuitBreakerState(symbol, from, to, price string, timestamp time.Time)
}

// CircuitBreaker is a per-symbol NORMAL/LIMIT_UP/LIMIT_DOWN/HALTED state
// machine, grounded on the teacher's account_status_service.go periodic
// state-transition shape and data_integrity_service.go's cron-driven
// refresh loop.
type CircuitBreaker struct {
	cat Catalog
	cfg CircuitBreakerConfig

	mu      sync.Mutex
	symbols map[string]*symbolState

	cron *cron.Cron

	// Transitions is a best-effort feed of state changes; a full channel
	// drops the new notification (and logs it) rather than blocking the
	// caller, since OnTrade runs on the matching hot path.
	Transitions chan StateChange

	throttleRPS float64
	publisher   StatePublisher
}

// SetPublisher attaches the pub/sub fan-out used to broadcast every state
// transition this breaker emits.
func (cb *CircuitBreaker) SetPublisher(p StatePublisher) { cb.publisher = p }

// NewCircuitBreaker constructs a breaker over cat's products. Zero-valued
// fields in cfg fall back to internal/config's documented defaults.
func NewCircuitBreaker(cat Catalog, cfg CircuitBreakerConfig, throttleRPS float64) *CircuitBreaker {
	if cfg.Level1 == 0 {
		cfg.Level1 = config.CircuitBreakerLevel1()
	}
	if cfg.Level2 == 0 {
		cfg.Level2 = config.CircuitBreakerLevel2()
	}
	if cfg.Level3 == 0 {
		cfg.Level3 = config.CircuitBreakerLevel3()
	}
	if cfg.HaltDuration == 0 {
		cfg.HaltDuration = time.Duration(config.HaltDuration()) * time.Second
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Duration(config.ReferencePriceRefreshInterval()) * time.Second
	}
	return &CircuitBreaker{
		cat:         cat,
		cfg:         cfg,
		symbols:     make(map[string]*symbolState),
		cron:        cron.New(),
		Transitions: make(chan StateChange, 256),
		throttleRPS: throttleRPS,
	}
}

func (cb *CircuitBreaker) stateFor(symbol string) *symbolState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s, ok := cb.symbols[symbol]
	if !ok {
		s = &symbolState{state: Normal}
		if p, ok := cb.cat.Get(symbol); ok {
			s.referencePrice = p.MarkPrice
		}
		cb.symbols[symbol] = s
	}
	return s
}

// Start schedules the periodic reference-price refresh and runs one pass
// immediately.
func (cb *CircuitBreaker) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %ds", int(cb.cfg.RefreshInterval.Seconds()))
	if _, err := cb.cron.AddFunc(spec, func() { cb.refreshReferences() }); err != nil {
		return fmt.Errorf("risk: schedule reference refresh: %w", err)
	}
	go cb.refreshReferences()
	cb.cron.Start()
	log.Printf("[CircuitBreaker] started, refresh interval %s, halt duration %s", cb.cfg.RefreshInterval, cb.cfg.HaltDuration)
	return nil
}

// Stop halts the refresh scheduler and waits for any in-flight run.
func (cb *CircuitBreaker) Stop(ctx context.Context) {
	stopCtx := cb.cron.Stop()
	<-stopCtx.Done()
	log.Printf("[CircuitBreaker] stopped")
}

// refreshReferences re-anchors every NORMAL symbol's reference price to its
// catalog mark price, and lifts any HALTED symbol whose halt has expired.
func (cb *CircuitBreaker) refreshReferences() {
	now := time.Now()
	for _, p := range cb.cat.All() {
		cb.mu.Lock()
		s, ok := cb.symbols[p.Symbol]
		if !ok {
			s = &symbolState{state: Normal, referencePrice: p.MarkPrice}
			cb.symbols[p.Symbol] = s
			cb.mu.Unlock()
			continue
		}
		switch {
		case s.state == Halted && !now.Before(s.haltUntil):
			from := s.state
			s.state = Normal
			s.referencePrice = p.MarkPrice
			s.limiter = nil
			cb.mu.Unlock()
			cb.emit(StateChange{Symbol: p.Symbol, From: from, To: Normal, Price: p.MarkPrice, Timestamp: now})
			continue
		case s.state == Normal:
			s.referencePrice = p.MarkPrice
		}
		cb.mu.Unlock()
	}
}

func (cb *CircuitBreaker) emit(sc StateChange) {
	select {
	case cb.Transitions <- sc:
	default:
		log.Printf("[CircuitBreaker] transitions channel full, dropped %s %s->%s", sc.Symbol, sc.From, sc.To)
	}
	if cb.publisher != nil {
		cb.publisher.PublishCircuitBreakerState(sc.Symbol, sc.From.String(), sc.To.String(), sc.Price.String(), sc.Timestamp)
	}
}

// classify classifies price against reference into the state it would
// trigger, given the offending direction implied by side.
func (cb *CircuitBreaker) classify(reference, price money.Amount, side book.Side) State {
	if reference.IsZero() {
		return Normal
	}
	deviation := price.ToFloat()/reference.ToFloat() - 1.0
	if side == book.Sell {
		deviation = -deviation
	}
	switch {
	case deviation >= cb.cfg.Level3:
		return Halted
	case deviation >= cb.cfg.Level2 || deviation >= cb.cfg.Level1:
		if side == book.Buy {
			return LimitUp
		}
		return LimitDown
	default:
		return Normal
	}
}

// CheckOrder rejects an order that would trade through an active band or
// symbol halt. price is the order's limit price (or, for a market order,
// the best opposite price the caller expects to cross).
func (cb *CircuitBreaker) CheckOrder(symbol string, side book.Side, price money.Amount) error {
	s := cb.stateFor(symbol)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if s.state == Halted {
		if time.Now().Before(s.haltUntil) {
			return fmt.Errorf("risk: %s is halted until %s", symbol, s.haltUntil.Format(time.RFC3339))
		}
		s.state = Normal
		s.limiter = nil
	}

	if price.IsZero() {
		// Market orders carry no limit price to band-check pre-trade; the
		// halt guard above is the only gate that applies to them here.
		return nil
	}

	target := cb.classify(s.referencePrice, price, side)
	if target == Halted {
		return fmt.Errorf("risk: %s order would cross the level3 band", symbol)
	}

	// The offending direction is blocked outright; the opposite side is
	// still admitted but throttled while the band is active.
	if target != Normal {
		return fmt.Errorf("risk: %s order on the %s side would cross the active %s band", symbol, side, target)
	}
	opposite := (s.state == LimitUp && side == book.Sell) || (s.state == LimitDown && side == book.Buy)
	if !opposite {
		return nil
	}
	if s.limiter == nil {
		s.limiter = rate.NewLimiter(rate.Limit(cb.throttleRPS), int(cb.throttleRPS)+1)
	}
	if !s.limiter.Allow() {
		return fmt.Errorf("risk: %s opposite-side flow throttled while %s", symbol, s.state)
	}
	return nil
}

// OnTrade re-evaluates symbol's state against the trade price, transitioning
// and starting the halt timer if the level3 band was crossed.
func (cb *CircuitBreaker) OnTrade(symbol string, price money.Amount) {
	s := cb.stateFor(symbol)

	cb.mu.Lock()
	from := s.state
	buySide := cb.classify(s.referencePrice, price, book.Buy)
	sellSide := cb.classify(s.referencePrice, price, book.Sell)
	target := Normal
	if buySide == Halted || sellSide == Halted {
		target = Halted
	} else if buySide != Normal {
		target = buySide
	} else if sellSide != Normal {
		target = sellSide
	}

	if target == from {
		cb.mu.Unlock()
		return
	}
	s.state = target
	if target == Halted {
		s.haltUntil = time.Now().Add(cb.cfg.HaltDuration)
		s.limiter = nil
	} else if target == Normal {
		s.limiter = nil
	}
	cb.mu.Unlock()

	cb.emit(StateChange{Symbol: symbol, From: from, To: target, Price: price, Timestamp: time.Now()})
	log.Printf("[CircuitBreaker] %s %s -> %s at %s", symbol, from, target, price)
}

// StateOf reports symbol's current state, for diagnostics and tests.
func (cb *CircuitBreaker) StateOf(symbol string) State {
	s := cb.stateFor(symbol)
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return s.state
}

// SetReferencePrice re-anchors symbol's band reference price, an admin
// override for markets where the catalog mark price has drifted away from
// a fair reference (a stale feed, a thin book after a halt).
func (cb *CircuitBreaker) SetReferencePrice(symbol string, price money.Amount) {
	s := cb.stateFor(symbol)
	cb.mu.Lock()
	s.referencePrice = price
	cb.mu.Unlock()
	log.Printf("[CircuitBreaker] %s reference price set to %s", symbol, price)
}
