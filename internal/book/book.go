package book

import (
	"fmt"
	"sort"
	"sync/atomic"

	"brokerageProject/internal/money"
)

// entry locates a resting order for O(log n) cancel/modify, the secondary
// index §3 calls for.
type entry struct {
	side  Side
	price money.Amount
}

// OrderBook is the per-symbol book: two sorted sides (bids descending,
// asks ascending), a price->level map per side, an id->location index, and
// a set of stop orders keyed by id. All mutation is expected to happen
// under the matching engine's per-symbol lock; OrderBook itself holds no
// lock (§5: "book internals mutated only under the symbol lock").
type OrderBook struct {
	Symbol string

	bids    map[money.Amount]*PriceLevel
	asks    map[money.Amount]*PriceLevel
	bidKeys []money.Amount // sorted descending
	askKeys []money.Amount // sorted ascending

	index map[uint64]entry
	stops map[uint64]*Order

	nextID uint64
}

// New returns an empty book for symbol.
func New(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   make(map[money.Amount]*PriceLevel),
		asks:   make(map[money.Amount]*PriceLevel),
		index:  make(map[uint64]entry),
		stops:  make(map[uint64]*Order),
	}
}

// NextOrderID returns a fresh, monotonically increasing id for this
// symbol. Safe to call from within the owning symbol lock only.
func (b *OrderBook) NextOrderID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

func (b *OrderBook) sideMaps(s Side) (map[money.Amount]*PriceLevel, *[]money.Amount) {
	if s == Buy {
		return b.bids, &b.bidKeys
	}
	return b.asks, &b.askKeys
}

// insertKey inserts price into keys, keeping bids descending and asks
// ascending, if not already present.
func insertKey(keys []money.Amount, price money.Amount, descending bool) []money.Amount {
	less := func(i int) bool {
		if descending {
			return keys[i].Cmp(price) < 0
		}
		return keys[i].Cmp(price) > 0
	}
	i := sort.Search(len(keys), less)
	if i < len(keys) && keys[i] == price {
		return keys
	}
	keys = append(keys, money.Zero)
	copy(keys[i+1:], keys[i:])
	keys[i] = price
	return keys
}

func removeKey(keys []money.Amount, price money.Amount) []money.Amount {
	for i, k := range keys {
		if k == price {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

// Rest inserts order into the book at its limit price, at the tail of its
// level's FIFO queue (fresh time priority).
func (b *OrderBook) Rest(o *Order) {
	levels, keys := b.sideMaps(o.Side)
	lvl, ok := levels[o.Price]
	if !ok {
		lvl = &PriceLevel{}
		levels[o.Price] = lvl
		*keys = insertKey(*keys, o.Price, o.Side == Buy)
	}
	lvl.Push(o)
	b.index[o.ID] = entry{side: o.Side, price: o.Price}
	if o.Status == Pending {
		o.Status = Open
	}
}

// RestAtFront re-inserts order at the head of its level's queue rather
// than the tail, used by Modify for a same-price quantity decrease that
// must retain its original time priority (§4.1).
func (b *OrderBook) RestAtFront(o *Order) {
	levels, keys := b.sideMaps(o.Side)
	lvl, ok := levels[o.Price]
	if !ok {
		lvl = &PriceLevel{}
		levels[o.Price] = lvl
		*keys = insertKey(*keys, o.Price, o.Side == Buy)
	}
	lvl.orders = append([]*Order{o}, lvl.orders...)
	b.index[o.ID] = entry{side: o.Side, price: o.Price}
	if o.Status == Pending {
		o.Status = Open
	}
}

// Remove cancels order id if it is currently resting, returning it.
func (b *OrderBook) Remove(id uint64) (*Order, bool) {
	loc, ok := b.index[id]
	if !ok {
		return nil, false
	}
	levels, keys := b.sideMaps(loc.side)
	lvl := levels[loc.price]
	o, ok := lvl.Remove(id)
	if !ok {
		return nil, false
	}
	delete(b.index, id)
	if lvl.Empty() {
		delete(levels, loc.price)
		*keys = removeKey(*keys, loc.price)
	}
	return o, true
}

// Get looks up order id without removing it, checking both resting sides
// and the stop trigger set.
func (b *OrderBook) Get(id uint64) (*Order, bool) {
	if loc, ok := b.index[id]; ok {
		levels, _ := b.sideMaps(loc.side)
		if lvl, ok := levels[loc.price]; ok {
			for _, o := range lvl.Orders() {
				if o.ID == id {
					return o, true
				}
			}
		}
	}
	if o, ok := b.stops[id]; ok {
		return o, true
	}
	return nil, false
}

// Open returns every resting or pending-trigger order belonging to user, or
// every such order if user is empty.
func (b *OrderBook) Open(user string) []*Order {
	var out []*Order
	for _, lvl := range b.bids {
		for _, o := range lvl.Orders() {
			if user == "" || o.UserID == user {
				out = append(out, o)
			}
		}
	}
	for _, lvl := range b.asks {
		for _, o := range lvl.Orders() {
			if user == "" || o.UserID == user {
				out = append(out, o)
			}
		}
	}
	for _, o := range b.stops {
		if user == "" || o.UserID == user {
			out = append(out, o)
		}
	}
	return out
}

// BestLevel returns the best (head-of-book) price level for side, or nil
// if that side is empty.
func (b *OrderBook) BestLevel(side Side) (money.Amount, *PriceLevel, bool) {
	levels, keys := b.sideMaps(side)
	if len(*keys) == 0 {
		return money.Zero, nil, false
	}
	price := (*keys)[0]
	return price, levels[price], true
}

// DropFrontIfEmpty removes the head level of side if its queue drained to
// empty, called by the matching loop after consuming a maker fully.
func (b *OrderBook) DropFrontIfEmpty(side Side, price money.Amount) {
	levels, keys := b.sideMaps(side)
	lvl, ok := levels[price]
	if !ok || !lvl.Empty() {
		return
	}
	delete(levels, price)
	*keys = removeKey(*keys, price)
}

// Unindex removes an order from the id index without touching the level
// (used once a maker has been fully consumed and popped by the matcher).
func (b *OrderBook) Unindex(id uint64) {
	delete(b.index, id)
}

// BBO returns the best bid and best ask, each with an ok flag.
func (b *OrderBook) BBO() (bid money.Amount, bidOK bool, ask money.Amount, askOK bool) {
	if len(b.bidKeys) > 0 {
		bid, bidOK = b.bidKeys[0], true
	}
	if len(b.askKeys) > 0 {
		ask, askOK = b.askKeys[0], true
	}
	return
}

// Crossed reports whether the top of book is crossed (best bid >= best
// ask), which must never be true once matching completes for a taker.
func (b *OrderBook) Crossed() bool {
	bid, bidOK, ask, askOK := b.BBO()
	if !bidOK || !askOK {
		return false
	}
	return bid.Cmp(ask) >= 0
}

// DepthLevel is one (price, aggregate qty) pair for a snapshot.
type DepthLevel struct {
	Price money.Amount
	Qty   float64
}

// Depth returns up to levels price levels for each side, best first.
func (b *OrderBook) Depth(levels int) (bids, asks []DepthLevel) {
	bids = snapshotSide(b.bids, b.bidKeys, levels)
	asks = snapshotSide(b.asks, b.askKeys, levels)
	return
}

func snapshotSide(levelMap map[money.Amount]*PriceLevel, keys []money.Amount, n int) []DepthLevel {
	if n > len(keys) {
		n = len(keys)
	}
	out := make([]DepthLevel, 0, n)
	for i := 0; i < n; i++ {
		p := keys[i]
		out = append(out, DepthLevel{Price: p, Qty: levelMap[p].TotalQty()})
	}
	return out
}

// AddStop registers a STOP_LIMIT order in the trigger set; it does not
// enter either side of the book on arrival (§4.1).
func (b *OrderBook) AddStop(o *Order) {
	b.stops[o.ID] = o
}

// RemoveStop cancels a pending stop order.
func (b *OrderBook) RemoveStop(id uint64) (*Order, bool) {
	o, ok := b.stops[id]
	if ok {
		delete(b.stops, id)
	}
	return o, ok
}

// TriggeredStops returns every stop order that crosses lastPrice, removes
// them from the trigger set, and orders them per §4.1's tie-break:
// ascending stop price for buys, descending for sells.
func (b *OrderBook) TriggeredStops(lastPrice money.Amount) []*Order {
	var buys, sells []*Order
	for id, o := range b.stops {
		triggered := false
		if o.Side == Buy && lastPrice.Cmp(o.StopPrice) >= 0 {
			triggered = true
		}
		if o.Side == Sell && lastPrice.Cmp(o.StopPrice) <= 0 {
			triggered = true
		}
		if triggered {
			delete(b.stops, id)
			if o.Side == Buy {
				buys = append(buys, o)
			} else {
				sells = append(sells, o)
			}
		}
	}
	sort.Slice(buys, func(i, j int) bool { return buys[i].StopPrice.Cmp(buys[j].StopPrice) < 0 })
	sort.Slice(sells, func(i, j int) bool { return sells[i].StopPrice.Cmp(sells[j].StopPrice) > 0 })
	return append(buys, sells...)
}

// String is used by invariant-violation panics to describe book state.
func (b *OrderBook) String() string {
	bid, bidOK, ask, askOK := b.BBO()
	return fmt.Sprintf("book(%s){bid=%v(%v) ask=%v(%v)}", b.Symbol, bid, bidOK, ask, askOK)
}
