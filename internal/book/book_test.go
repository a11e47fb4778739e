package book

import (
	"testing"

	"brokerageProject/internal/money"
)

func newOrder(id uint64, side Side, price float64, qty float64) *Order {
	return &Order{
		ID:       id,
		Symbol:   "BTC-PERP",
		Side:     side,
		Type:     Limit,
		Price:    money.MustFromFloat(price),
		Quantity: qty,
		Status:   Pending,
	}
}

func TestRestAndBBO(t *testing.T) {
	b := New("BTC-PERP")
	b.Rest(newOrder(1, Buy, 100, 1))
	b.Rest(newOrder(2, Sell, 101, 1))

	bid, bidOK, ask, askOK := b.BBO()
	if !bidOK || !askOK {
		t.Fatal("expected both sides populated")
	}
	if bid != money.MustFromFloat(100) || ask != money.MustFromFloat(101) {
		t.Fatalf("unexpected BBO: bid=%v ask=%v", bid, ask)
	}
	if b.Crossed() {
		t.Fatal("book should not be crossed")
	}
}

func TestFIFOWithinLevel(t *testing.T) {
	b := New("BTC-PERP")
	b.Rest(newOrder(1, Buy, 100, 1))
	b.Rest(newOrder(2, Buy, 100, 1))

	_, lvl, ok := b.BestLevel(Buy)
	if !ok {
		t.Fatal("expected a resting bid level")
	}
	if lvl.Front().ID != 1 {
		t.Fatalf("expected order 1 at head (FIFO), got %d", lvl.Front().ID)
	}
}

func TestRemoveCancelsAndCleansLevel(t *testing.T) {
	b := New("BTC-PERP")
	b.Rest(newOrder(1, Buy, 100, 1))

	o, ok := b.Remove(1)
	if !ok || o.ID != 1 {
		t.Fatal("expected to remove order 1")
	}
	if _, _, found := b.BestLevel(Buy); found {
		t.Fatal("expected bid side to be empty after removing its only order")
	}
	if _, ok := b.Remove(1); ok {
		t.Fatal("expected second remove to report not-found")
	}
}

func TestBestLevelOrderingAcrossPrices(t *testing.T) {
	b := New("BTC-PERP")
	b.Rest(newOrder(1, Buy, 99, 1))
	b.Rest(newOrder(2, Buy, 101, 1))
	b.Rest(newOrder(3, Buy, 100, 1))

	price, _, _ := b.BestLevel(Buy)
	if price != money.MustFromFloat(101) {
		t.Fatalf("best bid = %v, want 101 (highest)", price)
	}

	b2 := New("BTC-PERP")
	b2.Rest(newOrder(1, Sell, 105, 1))
	b2.Rest(newOrder(2, Sell, 101, 1))
	b2.Rest(newOrder(3, Sell, 103, 1))

	price2, _, _ := b2.BestLevel(Sell)
	if price2 != money.MustFromFloat(101) {
		t.Fatalf("best ask = %v, want 101 (lowest)", price2)
	}
}

func TestDepthSnapshot(t *testing.T) {
	b := New("BTC-PERP")
	b.Rest(newOrder(1, Buy, 100, 1))
	b.Rest(newOrder(2, Buy, 99, 2))
	b.Rest(newOrder(3, Sell, 101, 1))

	bids, asks := b.Depth(10)
	if len(bids) != 2 || len(asks) != 1 {
		t.Fatalf("unexpected depth sizes: bids=%d asks=%d", len(bids), len(asks))
	}
	if bids[0].Price != money.MustFromFloat(100) {
		t.Fatalf("best bid level = %v, want 100", bids[0].Price)
	}
}

func TestStopTriggerOrderingBuysAscendingSellsDescending(t *testing.T) {
	b := New("BTC-PERP")
	buy1 := newOrder(1, Buy, 100, 1)
	buy1.Type = StopLimit
	buy1.StopPrice = money.MustFromFloat(102)
	buy2 := newOrder(2, Buy, 100, 1)
	buy2.Type = StopLimit
	buy2.StopPrice = money.MustFromFloat(101)

	b.AddStop(buy1)
	b.AddStop(buy2)

	triggered := b.TriggeredStops(money.MustFromFloat(105))
	if len(triggered) != 2 {
		t.Fatalf("expected 2 triggered stops, got %d", len(triggered))
	}
	if triggered[0].ID != 2 || triggered[1].ID != 1 {
		t.Fatalf("expected ascending stop-price order [2,1], got [%d,%d]", triggered[0].ID, triggered[1].ID)
	}

	sell1 := newOrder(3, Sell, 100, 1)
	sell1.Type = StopLimit
	sell1.StopPrice = money.MustFromFloat(98)
	sell2 := newOrder(4, Sell, 100, 1)
	sell2.Type = StopLimit
	sell2.StopPrice = money.MustFromFloat(99)

	b.AddStop(sell1)
	b.AddStop(sell2)

	triggered = b.TriggeredStops(money.MustFromFloat(95))
	if len(triggered) != 2 {
		t.Fatalf("expected 2 triggered sell stops, got %d", len(triggered))
	}
	if triggered[0].ID != 4 || triggered[1].ID != 3 {
		t.Fatalf("expected descending stop-price order [4,3], got [%d,%d]", triggered[0].ID, triggered[1].ID)
	}
}

func TestNextOrderIDMonotonic(t *testing.T) {
	b := New("BTC-PERP")
	id1 := b.NextOrderID()
	id2 := b.NextOrderID()
	if id2 != id1+1 {
		t.Fatalf("expected monotonic ids, got %d then %d", id1, id2)
	}
}
