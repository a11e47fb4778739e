package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"brokerageProject/internal/book"
	"brokerageProject/internal/matching"
	"brokerageProject/internal/money"
)

type fakeMargin struct {
	marginErr error
	oiErr     error
}

func (f *fakeMargin) CheckMargin(user, symbol string, signedQty float64, price money.Amount, marginRate float64) error {
	return f.marginErr
}

func (f *fakeMargin) CheckOpenInterestLimit(symbol string, additionalSize float64) error {
	return f.oiErr
}

func newTestControllers(cat Catalog, margin MarginChecker) *Controllers {
	cb := NewCircuitBreaker(cat, testConfig(), 10)
	fx := NewFXBandController(cat, FXBandConfig{BandPercent: 0.02})
	return NewControllers(cat, cb, fx, margin, nil)
}

func TestCheckSubmitRejectsOnMarginFailure(t *testing.T) {
	cat := newFakeCatalog(btcPerp(100))
	c := newTestControllers(cat, &fakeMargin{marginErr: errors.New("insufficient margin")})

	order := &book.Order{Symbol: "BTC-PERP", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(100), Quantity: 1}
	if err := c.CheckSubmit(context.Background(), order); err == nil {
		t.Fatal("expected margin rejection to propagate")
	}
}

func TestCheckSubmitAdmitsValidOrder(t *testing.T) {
	cat := newFakeCatalog(btcPerp(100))
	c := newTestControllers(cat, &fakeMargin{})

	order := &book.Order{Symbol: "BTC-PERP", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(101), Quantity: 1}
	if err := c.CheckSubmit(context.Background(), order); err != nil {
		t.Fatalf("CheckSubmit: %v", err)
	}
}

func TestCheckSubmitRejectsDuringHalt(t *testing.T) {
	cat := newFakeCatalog(btcPerp(100))
	c := newTestControllers(cat, &fakeMargin{})
	c.breaker.OnTrade("BTC-PERP", money.MustFromFloat(130))

	order := &book.Order{Symbol: "BTC-PERP", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(130), Quantity: 1}
	if err := c.CheckSubmit(context.Background(), order); err == nil {
		t.Fatal("expected rejection while halted")
	}
}

func TestOnTradeUpdatesBreakerState(t *testing.T) {
	cat := newFakeCatalog(btcPerp(100))
	c := newTestControllers(cat, &fakeMargin{})

	trade := matching.Trade{Symbol: "BTC-PERP", Price: money.MustFromFloat(130), Quantity: 1, Timestamp: time.Now()}
	c.OnTrade(context.Background(), trade)

	if got := c.breaker.StateOf("BTC-PERP"); got != Halted {
		t.Fatalf("state after trade = %v, want HALTED", got)
	}
}
