package matching

import (
	"context"
	"fmt"

	"brokerageProject/internal/book"
	"brokerageProject/internal/catalog"
	"brokerageProject/internal/money"
)

// submitStop validates and parks a STOP_LIMIT order in the book's trigger
// set; it never enters either side of the book on arrival (§4.1).
func (e *Engine) submitStop(ctx context.Context, o *book.Order, product catalog.Product) ([]Trade, error) {
	if err := e.validate(o, product); err != nil {
		o.Status = book.Rejected
		return nil, err
	}

	lock := e.lockFor(o.Symbol)
	lock.Lock()
	defer lock.Unlock()

	if err := e.risk.CheckSubmit(ctx, o); err != nil {
		o.Status = book.Rejected
		return nil, err
	}

	b := e.bookFor(o.Symbol)
	o.ID = b.NextOrderID()
	o.Status = book.Pending
	b.AddStop(o)
	return nil, nil
}

// TriggerStopsAtPrice checks symbol's resting stops against an externally
// observed price (an oracle tick, not a local trade print) and fires any
// that cross, exactly as if that price had just traded. Used by risk's
// price feed dispatcher so a mark-price update from the external feed can
// trigger a stop even when the symbol hasn't locally traded since.
func (e *Engine) TriggerStopsAtPrice(ctx context.Context, symbol string, price money.Amount) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()
	b := e.bookFor(symbol)
	e.triggerStops(ctx, b, price)
}

// triggerStops fires any stop orders crossed by lastPrice and re-submits
// each as a LIMIT order, in the §4.1 tie-break order (ascending stop price
// for buys, descending for sells), after the triggering trade sequence has
// fully completed. Must be called with the symbol lock already held; a
// triggered stop may itself trigger further stops (e.g. a cascade through
// several resting stop prices), so this recurses until a pass finds none.
func (e *Engine) triggerStops(ctx context.Context, b *book.OrderBook, lastPrice money.Amount) {
	triggered := b.TriggeredStops(lastPrice)
	if len(triggered) == 0 {
		return
	}
	for _, o := range triggered {
		o.Type = book.Limit
		o.Status = book.Pending
		trades, err := e.match(ctx, b, o)
		if err != nil {
			fmt.Printf("matching: error matching triggered stop order %d: %v\n", o.ID, err)
			continue
		}
		if o.Remaining() > epsilon {
			b.Rest(o)
		}
		if len(trades) > 0 {
			e.triggerStops(ctx, b, trades[len(trades)-1].Price)
		}
	}
}
