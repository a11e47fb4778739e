package matching

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"brokerageProject/internal/book"
	"brokerageProject/internal/catalog"
	"brokerageProject/internal/money"
)

// RiskGate is the narrow collaborator the engine consults before admitting
// an order and after every trade, grounded on §4.4.1's circuit breaker and
// the position manager's limit checks. It must never block on I/O; §5
// requires the matching hot path stay free of suspension points.
type RiskGate interface {
	// CheckSubmit rejects an order that would cross a halted band or
	// violate a margin/position/notional/open-interest limit. It runs
	// before the book is touched — the engine never produces a trade
	// that would break a limit.
	CheckSubmit(ctx context.Context, o *book.Order) error

	// OnTrade notifies the gate of a completed trade so circuit-breaker
	// reference state and exposure tracking stay current.
	OnTrade(ctx context.Context, t Trade)
}

// Settlement is the narrow collaborator that applies a trade to both
// counterparties' positions and the ledger, grounded on §4.1's
// "after each Trade, the engine invokes the position manager to settle
// both counterparties".
type Settlement interface {
	Settle(ctx context.Context, t Trade) error
}

// Catalog is the subset of catalog.Catalog the engine needs.
type Catalog interface {
	Get(symbol string) (catalog.Product, bool)
}

// Engine is the composition of one OrderBook per symbol behind a per-symbol
// lock, grounded on the teacher's lazy symbol-mutex/order-book map pattern
// (adapted from an in-memory price-time-priority matcher rather than the
// teacher's DB-driven float execution). Different symbols proceed fully in
// parallel; submitting, cancelling, or modifying an order on symbol S
// acquires only S's lock.
type Engine struct {
	catalog Catalog
	risk    RiskGate
	settle  Settlement

	globalMu sync.RWMutex
	books    map[string]*book.OrderBook
	locks    map[string]*sync.Mutex

	tradeSeq uint64
	Trades   chan Trade // bounded; the exchange drains it into the market-data hub

	recentMu sync.Mutex
	recent   map[string][]Trade // per symbol, most recent last, capped at recentTradesCap
}

// recentTradesCap bounds the in-memory recent-trades buffer api's
// recent_trades op reads from; it is not the durable trade record (the
// event journal is).
const recentTradesCap = 200

// New constructs an Engine. trades is the bounded channel capacity for
// published trade events; backpressure on this channel throttles the
// producer per §9.
func New(cat Catalog, risk RiskGate, settle Settlement, tradeChanCapacity int) *Engine {
	return &Engine{
		catalog: cat,
		risk:    risk,
		settle:  settle,
		books:   make(map[string]*book.OrderBook),
		locks:   make(map[string]*sync.Mutex),
		Trades:  make(chan Trade, tradeChanCapacity),
		recent:  make(map[string][]Trade),
	}
}

func (e *Engine) recordRecent(t Trade) {
	e.recentMu.Lock()
	defer e.recentMu.Unlock()
	buf := append(e.recent[t.Symbol], t)
	if len(buf) > recentTradesCap {
		buf = buf[len(buf)-recentTradesCap:]
	}
	e.recent[t.Symbol] = buf
}

// RecentTrades returns up to n of the most recent trades for symbol,
// newest last. It is an in-memory convenience for the api layer, not a
// durable record.
func (e *Engine) RecentTrades(symbol string, n int) []Trade {
	e.recentMu.Lock()
	defer e.recentMu.Unlock()
	buf := e.recent[symbol]
	if n <= 0 || n > len(buf) {
		n = len(buf)
	}
	out := make([]Trade, n)
	copy(out, buf[len(buf)-n:])
	return out
}

// GetOrder looks up an order by id on symbol's book without mutating it.
func (e *Engine) GetOrder(symbol string, id uint64) (*book.Order, bool) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()
	return e.bookFor(symbol).Get(id)
}

// ListOpenOrders returns every resting or pending-trigger order for symbol
// belonging to user ("" for every user's orders).
func (e *Engine) ListOpenOrders(symbol, user string) []*book.Order {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()
	return e.bookFor(symbol).Open(user)
}

func (e *Engine) lockFor(symbol string) *sync.Mutex {
	e.globalMu.RLock()
	l, ok := e.locks[symbol]
	e.globalMu.RUnlock()
	if ok {
		return l
	}
	e.globalMu.Lock()
	defer e.globalMu.Unlock()
	if l, ok = e.locks[symbol]; ok {
		return l
	}
	l = &sync.Mutex{}
	e.locks[symbol] = l
	return l
}

func (e *Engine) bookFor(symbol string) *book.OrderBook {
	e.globalMu.RLock()
	b, ok := e.books[symbol]
	e.globalMu.RUnlock()
	if ok {
		return b
	}
	e.globalMu.Lock()
	defer e.globalMu.Unlock()
	if b, ok = e.books[symbol]; ok {
		return b
	}
	b = book.New(symbol)
	e.books[symbol] = b
	return b
}

// Submit admits in for matching, returning the trades it generated. in's
// Status is updated in place to its terminal (or resting) state. Submission
// is synchronous and, per §5, non-cancellable once it has generated its
// first trade.
func (e *Engine) Submit(ctx context.Context, in *book.Order) ([]Trade, error) {
	product, ok := e.catalog.Get(in.Symbol)
	if !ok {
		return nil, fmt.Errorf("matching: unknown symbol %s", in.Symbol)
	}
	if !product.IsActive {
		in.Status = book.Rejected
		return nil, fmt.Errorf("matching: %s is not active", in.Symbol)
	}

	if in.Type == book.StopLimit {
		return e.submitStop(ctx, in, product)
	}

	if err := e.validate(in, product); err != nil {
		in.Status = book.Rejected
		return nil, err
	}

	lock := e.lockFor(in.Symbol)
	lock.Lock()
	defer lock.Unlock()

	if err := e.risk.CheckSubmit(ctx, in); err != nil {
		in.Status = book.Rejected
		return nil, err
	}

	b := e.bookFor(in.Symbol)

	if in.Type == book.PostOnly && wouldCross(b, in) {
		in.Status = book.Rejected
		return nil, fmt.Errorf("matching: POST_ONLY order would cross the book")
	}
	if in.Type == book.FOK && !fillable(b, in) {
		in.Status = book.Rejected
		return nil, fmt.Errorf("matching: FOK order cannot be filled at acceptable prices")
	}

	in.ID = b.NextOrderID()
	trades, err := e.match(ctx, b, in)
	if err != nil {
		return trades, err
	}

	switch in.Type {
	case book.Market, book.IOC, book.FOK:
		// never rests; any unfilled remainder is cancelled
		if in.Remaining() > epsilon && in.Status != book.Filled {
			in.Status = book.Cancelled
		}
	default: // Limit, PostOnly
		if in.Remaining() > epsilon {
			b.Rest(in)
		}
	}

	if len(trades) > 0 {
		last := trades[len(trades)-1]
		e.triggerStops(ctx, b, last.Price)
	}

	return trades, nil
}

func wouldCross(b *book.OrderBook, taker *book.Order) bool {
	price, _, ok := b.BestLevel(taker.Side.Opposite())
	if !ok {
		return false
	}
	return crosses(taker, price)
}

func fillable(b *book.OrderBook, taker *book.Order) bool {
	remaining := taker.Remaining()
	opp := taker.Side.Opposite()
	// Walk the opposite side's levels from best to worst without
	// mutating the book, accumulating quantity at acceptable prices.
	var levels []money.Amount
	bids, asks := b.Depth(1 << 20)
	if opp == book.Buy {
		levels = amountsOf(bids)
	} else {
		levels = amountsOf(asks)
	}
	var depthByPrice map[money.Amount]float64
	if opp == book.Buy {
		depthByPrice = qtyByPrice(bids)
	} else {
		depthByPrice = qtyByPrice(asks)
	}
	for _, p := range levels {
		if !crosses(taker, p) {
			break
		}
		remaining -= depthByPrice[p]
		if remaining <= epsilon {
			return true
		}
	}
	return remaining <= epsilon
}

func amountsOf(levels []book.DepthLevel) []money.Amount {
	out := make([]money.Amount, len(levels))
	for i, l := range levels {
		out[i] = l.Price
	}
	return out
}

func qtyByPrice(levels []book.DepthLevel) map[money.Amount]float64 {
	m := make(map[money.Amount]float64, len(levels))
	for _, l := range levels {
		m[l.Price] = l.Qty
	}
	return m
}

func crosses(taker *book.Order, makerPrice money.Amount) bool {
	if taker.Type == book.Market {
		return true
	}
	if taker.Side == book.Buy {
		return taker.Price.Cmp(makerPrice) >= 0
	}
	return taker.Price.Cmp(makerPrice) <= 0
}

// match runs the core price-time-priority loop against the opposite side
// of b, mutating the book and producing trades. A detected book-invariant
// violation (crossed top-of-book after the loop) is fatal per §7: the
// engine panics, halting the process for this symbol rather than silently
// continuing on corrupted state.
func (e *Engine) match(ctx context.Context, b *book.OrderBook, taker *book.Order) ([]Trade, error) {
	var trades []Trade
	opp := taker.Side.Opposite()

	for taker.Remaining() > epsilon {
		price, lvl, ok := b.BestLevel(opp)
		if !ok || !crosses(taker, price) {
			break
		}
		maker := lvl.Front()
		fillQty := minF(taker.Remaining(), maker.Remaining())

		maker.Fill(fillQty)
		taker.Fill(fillQty)

		t := Trade{
			ID:           atomic.AddUint64(&e.tradeSeq, 1),
			Symbol:       b.Symbol,
			MakerOrderID: maker.ID,
			TakerOrderID: taker.ID,
			MakerUser:    maker.UserID,
			TakerUser:    taker.UserID,
			TakerSide:    taker.Side,
			Price:        price,
			Quantity:     fillQty,
			Timestamp:    time.Now(),
		}
		trades = append(trades, t)

		if maker.Remaining() <= epsilon {
			lvl.PopFront()
			b.Unindex(maker.ID)
			b.DropFrontIfEmpty(opp, price)
		}
	}

	if b.Crossed() {
		panic(fmt.Sprintf("matching: book invariant violated, crossed top-of-book: %s", b))
	}

	for _, t := range trades {
		e.recordRecent(t)
		if e.settle != nil {
			if err := e.settle.Settle(ctx, t); err != nil {
				// A settlement failure after a trade has already executed
				// does not undo the trade (it has already mutated the
				// book); the error is logged here and the settlement is
				// not retried.
				fmt.Printf("matching: settlement error for trade %d: %v\n", t.ID, err)
			}
		}
		if e.risk != nil {
			e.risk.OnTrade(ctx, t)
		}
		select {
		case e.Trades <- t:
		case <-ctx.Done():
		}
	}

	return trades, nil
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
