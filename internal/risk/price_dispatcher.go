package risk

import (
	"context"
	"log"

	"brokerageProject/internal/money"
)

// MarkPriceSetter is the subset of catalog.Catalog the dispatcher writes
// oracle ticks through.
type MarkPriceSetter interface {
	SetMarkPrice(symbol string, price money.Amount) error
	SetLastPrice(symbol string, price money.Amount) error
}

// StopTrigger is the subset of matching.Engine the dispatcher drives when an
// external price tick crosses a resting stop.
type StopTrigger interface {
	TriggerStopsAtPrice(ctx context.Context, symbol string, price money.Amount)
}

// LiquidationSweeper is the subset of position.Manager the dispatcher drives
// after every tick, so an external price move that pushes a position through
// maintenance margin is caught immediately rather than waiting for the next
// cron sweep.
type LiquidationSweeper interface {
	LiquidationSweep() []string
}

// MarkPricePublisher fans a mark-price tick out to external subscribers
// once the catalog has been updated. Optional: nil by default.
type MarkPricePublisher interface {
	PublishMarkPrice(symbol string, price float64)
}

// PriceDispatcher is the price-driven successor to the teacher's
// OrderProcessor: instead of polling a pending_orders table on a timer, it
// reacts to each catalog.MarkPriceFeed tick by updating the catalog, firing
// any crossed stop orders, and re-running the liquidation sweep — the same
// "no polling, no timers" event-driven shape, rebuilt over the matching
// engine and position manager instead of a Postgres-backed order queue.
type PriceDispatcher struct {
	cat       MarkPriceSetter
	stops     StopTrigger
	margin    LiquidationSweeper
	symbols   map[string]string // feed symbol -> catalog symbol
	publisher MarkPricePublisher
}

// NewPriceDispatcher returns a dispatcher that maps feed symbols (e.g.
// Binance's "BTCUSDT") to catalog symbols ("BTC-PERP") via symbols.
func NewPriceDispatcher(cat MarkPriceSetter, stops StopTrigger, margin LiquidationSweeper, symbols map[string]string) *PriceDispatcher {
	return &PriceDispatcher{cat: cat, stops: stops, margin: margin, symbols: symbols}
}

// SetPublisher attaches the pub/sub fan-out used to broadcast every tick
// this dispatcher applies. Call before the feed starts ticking.
func (d *PriceDispatcher) SetPublisher(p MarkPricePublisher) { d.publisher = p }

// OnTick implements catalog.MarkPriceFeed's onTick callback shape. It
// updates the catalog's mark/last price for the mapped symbol, triggers any
// stops that now cross, and runs an immediate liquidation sweep.
func (d *PriceDispatcher) OnTick(feedSymbol string, price float64) {
	symbol, ok := d.symbols[feedSymbol]
	if !ok {
		return
	}
	amt := money.MustFromFloat(price)

	if err := d.cat.SetMarkPrice(symbol, amt); err != nil {
		log.Printf("risk: dispatcher set mark price %s: %v", symbol, err)
		return
	}
	if err := d.cat.SetLastPrice(symbol, amt); err != nil {
		log.Printf("risk: dispatcher set last price %s: %v", symbol, err)
	}
	if d.publisher != nil {
		d.publisher.PublishMarkPrice(symbol, price)
	}

	ctx := context.Background()
	d.stops.TriggerStopsAtPrice(ctx, symbol, amt)

	if liquidated := d.margin.LiquidationSweep(); len(liquidated) > 0 {
		log.Printf("risk: dispatcher liquidated %d position(s) on %s tick", len(liquidated), symbol)
	}
}
