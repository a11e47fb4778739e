package risk

import (
	"context"
	"fmt"

	"brokerageProject/internal/book"
	"brokerageProject/internal/matching"
	"brokerageProject/internal/money"
)

// MarginChecker is the subset of position.Manager Controllers consults
// before admitting an order, grounded on §4.1's "the engine asks the
// position manager for a conditional margin check using the order's
// maximum potential notional".
type MarginChecker interface {
	CheckMargin(user, symbol string, signedQty float64, price money.Amount, marginRate float64) error
	CheckOpenInterestLimit(symbol string, additionalSize float64) error
}

// Controllers composes the circuit breaker, the FX band gate, and the
// position manager's margin/open-interest checks into the single
// matching.RiskGate the engine consults, grounded on §4.4's enumeration of
// risk controllers and matching.RiskGate's two-method contract.
type Controllers struct {
	cat     Catalog
	breaker *CircuitBreaker
	fx      *FXBandController
	margin  MarginChecker
	hedge   *ExposureTracker
}

// NewControllers composes the risk gate. hedge may be nil if the exchange
// trades no hedgeable products.
func NewControllers(cat Catalog, breaker *CircuitBreaker, fx *FXBandController, margin MarginChecker, hedge *ExposureTracker) *Controllers {
	return &Controllers{cat: cat, breaker: breaker, fx: fx, margin: margin, hedge: hedge}
}

// Start starts the circuit breaker's refresh loop and, if configured, the
// hedge tracker's sweep.
func (c *Controllers) Start(ctx context.Context) error {
	if err := c.breaker.Start(ctx); err != nil {
		return err
	}
	if c.hedge != nil {
		if err := c.hedge.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Breaker exposes the circuit breaker for admin overrides (halt/resume
// state queries, reference price resets) that sit outside the RiskGate
// contract the matching engine consults.
func (c *Controllers) Breaker() *CircuitBreaker { return c.breaker }

// Stop stops every owned background worker.
func (c *Controllers) Stop(ctx context.Context) {
	c.breaker.Stop(ctx)
	if c.hedge != nil {
		c.hedge.Stop(ctx)
	}
}

// CheckSubmit implements matching.RiskGate. It rejects an order that would
// cross a halted band, violate the FX band/spread/depth gate, or exceed the
// user's margin or the symbol's open-interest cap.
func (c *Controllers) CheckSubmit(ctx context.Context, o *book.Order) error {
	if err := c.breaker.CheckOrder(o.Symbol, o.Side, o.Price); err != nil {
		return err
	}
	if err := c.fx.CheckOrder(o); err != nil {
		return err
	}

	product, ok := c.cat.Get(o.Symbol)
	if !ok {
		return fmt.Errorf("risk: unknown symbol %s", o.Symbol)
	}

	checkPrice := o.Price
	if checkPrice.IsZero() {
		checkPrice = product.MarkPrice
	}
	signedQty := o.Remaining()
	if o.Side == book.Sell {
		signedQty = -signedQty
	}
	if err := c.margin.CheckMargin(o.UserID, o.Symbol, signedQty, checkPrice, product.MarginRate); err != nil {
		return err
	}
	if !o.ReduceOnly {
		if err := c.margin.CheckOpenInterestLimit(o.Symbol, o.Remaining()); err != nil {
			return err
		}
	}
	return nil
}

// OnTrade implements matching.RiskGate. It re-evaluates the circuit
// breaker's state against the trade price and, for hedgeable products, notifies
// the exposure tracker.
func (c *Controllers) OnTrade(ctx context.Context, t matching.Trade) {
	c.breaker.OnTrade(t.Symbol, t.Price)
	if c.hedge != nil {
		c.hedge.OnTrade(ctx, t.Symbol)
	}
}
