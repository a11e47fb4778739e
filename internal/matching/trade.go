// Package matching implements the price-time-priority matching engine: one
// OrderBook per symbol, serialized by a per-symbol lock, producing a
// deterministic ordered sequence of Trades for every submitted order.
package matching

import (
	"time"

	"brokerageProject/internal/book"
	"brokerageProject/internal/money"
)

// Trade is an immutable fill record, priced at the maker's price.
type Trade struct {
	ID            uint64
	Symbol        string
	MakerOrderID  uint64
	TakerOrderID  uint64
	MakerUser     string
	TakerUser     string
	TakerSide     book.Side
	Price         money.Amount
	Quantity      float64
	MakerFee      money.Amount
	TakerFee      money.Amount
	Timestamp     time.Time
}

// epsilon is the tolerance below which a remaining float64 quantity is
// treated as exhausted, matching §3's "|size| < ε" convention.
const epsilon = 1e-9
