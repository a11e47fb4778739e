package risk

import (
	"testing"

	"brokerageProject/internal/book"
	"brokerageProject/internal/money"
)

func TestFXBandIgnoresCryptoQuotedProducts(t *testing.T) {
	fx := NewFXBandController(newFakeCatalog(btcPerp(100)), FXBandConfig{BandPercent: 0.02})
	order := &book.Order{Symbol: "BTC-PERP", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(150)}
	if err := fx.CheckOrder(order); err != nil {
		t.Fatalf("crypto-quoted product should not be band-checked: %v", err)
	}
}

func TestFXBandRejectsOutsideBand(t *testing.T) {
	fx := NewFXBandController(newFakeCatalog(usdMnt(3450)), FXBandConfig{BandPercent: 0.02})
	order := &book.Order{Symbol: "USD-MNT", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(3600)}
	err := fx.CheckOrder(order)
	if err == nil {
		t.Fatal("expected rejection outside band")
	}
	rej, ok := err.(*BandRejection)
	if !ok {
		t.Fatalf("err = %T, want *BandRejection", err)
	}
	if rej.Reason != RejectOutsideBand {
		t.Fatalf("reason = %s, want OUTSIDE_BAND", rej.Reason)
	}
}

func TestFXBandAllowsWithinBand(t *testing.T) {
	fx := NewFXBandController(newFakeCatalog(usdMnt(3450)), FXBandConfig{BandPercent: 0.02})
	order := &book.Order{Symbol: "USD-MNT", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(3460)}
	if err := fx.CheckOrder(order); err != nil {
		t.Fatalf("price within band should be admitted: %v", err)
	}
}

type fakeDepth struct {
	bids, asks []book.DepthLevel
}

func (d *fakeDepth) Depth(symbol string, levels int) (bids, asks []book.DepthLevel) {
	return d.bids, d.asks
}

func TestFXBandRejectsInsufficientDepth(t *testing.T) {
	fx := NewFXBandController(newFakeCatalog(usdMnt(3450)), FXBandConfig{BandPercent: 0.02, MinSpread: 0, MinDepth: 1000})
	fx.SetDepthProvider(&fakeDepth{
		bids: []book.DepthLevel{{Price: money.MustFromFloat(3449), Qty: 10}},
		asks: []book.DepthLevel{{Price: money.MustFromFloat(3451), Qty: 10}},
	})
	order := &book.Order{Symbol: "USD-MNT", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(3450)}
	err := fx.CheckOrder(order)
	if err == nil {
		t.Fatal("expected rejection for thin depth")
	}
	if rej := err.(*BandRejection); rej.Reason != RejectInsufficientDepth {
		t.Fatalf("reason = %s, want INSUFFICIENT_DEPTH", rej.Reason)
	}
}
