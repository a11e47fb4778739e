// Package catalog holds the shared, read-mostly table of tradeable
// products. It is loaded at startup and mutated only through a single
// admin write path; everything else reads a lock-free snapshot.
package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"brokerageProject/internal/money"
)

// Product is a tradeable instrument and its risk/fee parameters, mirroring
// the teacher's Instrument/SpotConfiguration fields collapsed onto the
// fixed-point numeric core.
type Product struct {
	Symbol         string
	Category       string // "perpetual" or "spot"
	BaseCurrency   string // commodity code settled directly for spot products
	QuoteCurrency  string
	ExternalSymbol string // hedging symbol at the broker, empty if not hedgeable

	TickSize     money.Amount
	MinOrderSize float64
	MaxOrderSize float64

	MarginRate float64 // in (0, 1]
	MakerFee   float64 // fraction of notional
	TakerFee   float64 // fraction of notional

	MarkPrice   money.Amount
	LastPrice   money.Amount
	FundingRate float64

	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Hedgeable reports whether the product has an external broker symbol.
func (p Product) Hedgeable() bool { return p.ExternalSymbol != "" }

// IsSpot reports whether the product settles as a direct two-party
// commodity/quote transfer (§4.2's settle_spot) rather than a margined
// position.
func (p Product) IsSpot() bool { return p.Category == "spot" }

// ValidateOrderSize checks qty against the product's min/max order size.
func (p Product) ValidateOrderSize(qty float64) error {
	if qty < p.MinOrderSize || qty > p.MaxOrderSize {
		return fmt.Errorf("catalog: quantity %v outside [%v, %v] for %s", qty, p.MinOrderSize, p.MaxOrderSize, p.Symbol)
	}
	return nil
}

// ValidatePrice checks that price is a positive multiple of the tick size.
func (p Product) ValidatePrice(price money.Amount) error {
	if price <= 0 {
		return fmt.Errorf("catalog: non-positive price for %s", p.Symbol)
	}
	return money.ValidateTick(price, p.TickSize)
}

// Catalog is the shared product table: one writer (admin mutation path),
// many lock-free readers via a copy-on-write pointer swap backed by
// patrickmn/go-cache so mark-price/funding-rate updates (the hottest write
// path, driven by the oracle) don't contend with the colder admin path.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]*Product

	snapshots *cache.Cache
}

// New returns an empty catalog. Call Seed before use.
func New() *Catalog {
	return &Catalog{
		products:  make(map[string]*Product),
		snapshots: cache.New(cache.NoExpiration, 0),
	}
}

// Seed installs an initial set of products, such as the demo/default
// catalog installed at startup. The catalog has no database-backed load.
func (c *Catalog) Seed(products []Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range products {
		p := products[i]
		c.products[p.Symbol] = &p
		c.snapshots.Set(p.Symbol, p, cache.NoExpiration)
	}
}

// Get returns a copy of the product's current state. The bool is false if
// the symbol is unknown.
func (c *Catalog) Get(symbol string) (Product, bool) {
	if v, ok := c.snapshots.Get(symbol); ok {
		return v.(Product), true
	}
	return Product{}, false
}

// All returns a snapshot copy of every product, for catalog listing
// endpoints and startup reconciliation.
func (c *Catalog) All() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, *p)
	}
	return out
}

// mutate runs fn under the write lock against the authoritative map, then
// republishes the resulting snapshot for lock-free readers.
func (c *Catalog) mutate(symbol string, fn func(p *Product) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[symbol]
	if !ok {
		return fmt.Errorf("catalog: unknown symbol %s", symbol)
	}
	if err := fn(p); err != nil {
		return err
	}
	p.UpdatedAt = now()
	snapshot := *p
	c.snapshots.Set(symbol, snapshot, cache.NoExpiration)
	return nil
}

// SetMarkPrice updates the mark-price oracle reading for symbol.
func (c *Catalog) SetMarkPrice(symbol string, price money.Amount) error {
	return c.mutate(symbol, func(p *Product) error {
		p.MarkPrice = price
		return nil
	})
}

// SetLastPrice updates the last traded price for symbol, used as the stop
// order trigger reference.
func (c *Catalog) SetLastPrice(symbol string, price money.Amount) error {
	return c.mutate(symbol, func(p *Product) error {
		p.LastPrice = price
		return nil
	})
}

// SetFundingRate updates the current funding rate for a perpetual product.
func (c *Catalog) SetFundingRate(symbol string, rate float64) error {
	return c.mutate(symbol, func(p *Product) error {
		p.FundingRate = rate
		return nil
	})
}

// Deactivate marks a product inactive: new orders are rejected, but
// existing resting orders remain until cancelled (§3 Product lifecycle).
func (c *Catalog) Deactivate(symbol string) error {
	return c.mutate(symbol, func(p *Product) error {
		p.IsActive = false
		return nil
	})
}

// Activate re-enables order submission for a previously deactivated product.
func (c *Catalog) Activate(symbol string) error {
	return c.mutate(symbol, func(p *Product) error {
		p.IsActive = true
		return nil
	})
}

// now is overridable in tests; production uses wall-clock time.
var now = time.Now
