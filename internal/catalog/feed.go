package catalog

// MarkPriceFeed is an external price oracle that streams last-trade prices
// for a set of instruments. Exchange wiring uses it to drive
// Catalog.SetMarkPrice/SetLastPrice, which in turn feeds the matching
// engine's stop-order trigger reference and the risk controllers'
// mark-to-market sweep.
type MarkPriceFeed interface {
	// Subscribe starts streaming ticks for symbols, invoking onTick with the
	// feed's own symbol spelling and the last traded price. It returns once
	// the feed's background goroutine is running.
	Subscribe(symbols []string, onTick func(symbol string, price float64)) error

	// Stop shuts the feed down and waits for its goroutine to exit.
	Stop()
}
