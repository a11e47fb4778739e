package matching

import (
	"context"
	"testing"

	"brokerageProject/internal/book"
	"brokerageProject/internal/catalog"
	"brokerageProject/internal/money"
)

type fakeCatalog struct {
	products map[string]catalog.Product
}

func (f *fakeCatalog) Get(symbol string) (catalog.Product, bool) {
	p, ok := f.products[symbol]
	return p, ok
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]catalog.Product{
		"BTC-PERP": {
			Symbol:       "BTC-PERP",
			TickSize:     money.MustFromFloat(1),
			MinOrderSize: 0.01,
			MaxOrderSize: 1000,
			IsActive:     true,
		},
	}}
}

type fakeRisk struct {
	rejectSubmit error
	trades       []Trade
}

func (f *fakeRisk) CheckSubmit(ctx context.Context, o *book.Order) error { return f.rejectSubmit }
func (f *fakeRisk) OnTrade(ctx context.Context, t Trade)                 { f.trades = append(f.trades, t) }

type fakeSettlement struct {
	settled []Trade
}

func (f *fakeSettlement) Settle(ctx context.Context, t Trade) error {
	f.settled = append(f.settled, t)
	return nil
}

func newTestEngine() (*Engine, *fakeRisk, *fakeSettlement) {
	risk := &fakeRisk{}
	settle := &fakeSettlement{}
	e := New(newFakeCatalog(), risk, settle, 64)
	return e, risk, settle
}

func drainTrades(e *Engine) {
	for {
		select {
		case <-e.Trades:
		default:
			return
		}
	}
}

func limitOrder(user string, side book.Side, price, qty float64) *book.Order {
	return &book.Order{
		Symbol:   "BTC-PERP",
		UserID:   user,
		Side:     side,
		Type:     book.Limit,
		Price:    money.MustFromFloat(price),
		Quantity: qty,
		Status:   book.Pending,
	}
}

func TestCrossTheSpreadFill(t *testing.T) {
	e, _, settle := newTestEngine()
	ctx := context.Background()

	ask := limitOrder("A", book.Sell, 100, 1.0)
	if _, err := e.Submit(ctx, ask); err != nil {
		t.Fatalf("resting ask submit: %v", err)
	}

	bid := limitOrder("B", book.Buy, 101, 1.0)
	trades, err := e.Submit(ctx, bid)
	if err != nil {
		t.Fatalf("taker submit: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Price != money.MustFromFloat(100) {
		t.Fatalf("trade price = %v, want 100 (maker's price)", tr.Price)
	}
	if tr.Quantity != 1.0 {
		t.Fatalf("trade qty = %v, want 1.0", tr.Quantity)
	}
	if bid.Status != book.Filled || ask.Status != book.Filled {
		t.Fatalf("expected both orders filled, got taker=%v maker=%v", bid.Status, ask.Status)
	}

	if len(settle.settled) != 1 {
		t.Fatalf("expected settlement called once, got %d", len(settle.settled))
	}
}

func TestPostOnlyRejectsWhenCrossing(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	ask := limitOrder("A", book.Sell, 100, 1.0)
	if _, err := e.Submit(ctx, ask); err != nil {
		t.Fatalf("resting ask submit: %v", err)
	}

	post := limitOrder("B", book.Buy, 100, 1.0)
	post.Type = book.PostOnly
	trades, err := e.Submit(ctx, post)
	if err == nil {
		t.Fatal("expected POST_ONLY rejection")
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
	if post.Status != book.Rejected {
		t.Fatalf("expected Rejected status, got %v", post.Status)
	}
}

func TestFOKRejectsOnInsufficientDepth(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	ask := limitOrder("A", book.Sell, 100, 0.5)
	if _, err := e.Submit(ctx, ask); err != nil {
		t.Fatalf("resting ask submit: %v", err)
	}

	fok := limitOrder("B", book.Buy, 100, 1.0)
	fok.Type = book.FOK
	trades, err := e.Submit(ctx, fok)
	if err == nil {
		t.Fatal("expected FOK rejection")
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades on FOK rejection, got %d", len(trades))
	}

	_, asks := e.Depth("BTC-PERP", 10)
	if len(asks) != 1 || asks[0].Qty != 0.5 {
		t.Fatalf("expected resting ask of 0.5 to remain untouched, got %+v", asks)
	}
}

func TestIOCCancelsRemainder(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	ask := limitOrder("A", book.Sell, 100, 0.5)
	if _, err := e.Submit(ctx, ask); err != nil {
		t.Fatalf("resting ask submit: %v", err)
	}

	ioc := limitOrder("B", book.Buy, 100, 1.0)
	ioc.Type = book.IOC
	trades, err := e.Submit(ctx, ioc)
	if err != nil {
		t.Fatalf("IOC submit: %v", err)
	}
	if len(trades) != 1 || trades[0].Quantity != 0.5 {
		t.Fatalf("expected partial fill of 0.5, got %+v", trades)
	}
	if ioc.Status != book.Cancelled {
		t.Fatalf("expected IOC remainder cancelled, got %v", ioc.Status)
	}
}

func TestCancelOnlyByOwner(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	resting := limitOrder("A", book.Buy, 100, 1.0)
	if _, err := e.Submit(ctx, resting); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := e.Cancel("BTC-PERP", resting.ID, "not-owner"); err == nil {
		t.Fatal("expected error cancelling another user's order")
	}
	cancelled, err := e.Cancel("BTC-PERP", resting.ID, "A")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled == nil || cancelled.Status != book.Cancelled {
		t.Fatalf("expected order cancelled, got %+v", cancelled)
	}
}

func TestStopLimitTriggersOnLastPrice(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	// A resting BUY stop at 102 triggers once a trade prints at or above
	// 102, then re-enters the book as a LIMIT buy at 105.
	stop := limitOrder("C", book.Buy, 105, 1.0)
	stop.Type = book.StopLimit
	stop.StopPrice = money.MustFromFloat(102)
	if _, err := e.Submit(ctx, stop); err != nil {
		t.Fatalf("stop submit: %v", err)
	}

	// Seed a crossing trade at 105 to move the last traded price past
	// the stop's trigger level.
	ask := limitOrder("A", book.Sell, 105, 2.0)
	if _, err := e.Submit(ctx, ask); err != nil {
		t.Fatalf("resting ask: %v", err)
	}
	taker := limitOrder("B", book.Buy, 105, 1.0)
	trades, err := e.Submit(ctx, taker)
	if err != nil {
		t.Fatalf("taker submit: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade to set last price, got %d", len(trades))
	}

	// The stop should have triggered and matched against the remaining
	// resting ask at 105.
	if stop.Status != book.Filled && stop.Status != book.Partial {
		t.Fatalf("expected triggered stop to match, got status %v", stop.Status)
	}
}
