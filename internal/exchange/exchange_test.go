package exchange

import (
	"context"
	"testing"
	"time"

	"brokerageProject/internal/book"
	"brokerageProject/internal/catalog"
	"brokerageProject/internal/money"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.LedgerDir = t.TempDir()
	cfg.EventJournalDir = t.TempDir()
	cfg.EventJournalRollover = 1 << 20
	cfg.TradeChanCapacity = 64
	cfg.Products = []catalog.Product{
		{
			Symbol:       "BTC-PERP",
			Category:     "perpetual",
			QuoteCurrency: "USD",
			TickSize:     money.MustFromFloat(0.5),
			MinOrderSize: 0.001,
			MaxOrderSize: 100,
			MarginRate:   0.1,
			MakerFee:     0.0002,
			TakerFee:     0.0005,
			MarkPrice:    money.MustFromFloat(50000),
			LastPrice:    money.MustFromFloat(50000),
			IsActive:     true,
		},
		{
			Symbol:        "ETH-USD",
			Category:      "spot",
			BaseCurrency:  "ETH",
			QuoteCurrency: "USD",
			TickSize:      money.MustFromFloat(0.01),
			MinOrderSize:  0.001,
			MaxOrderSize:  100,
			MakerFee:      0.0002,
			TakerFee:      0.0005,
			MarkPrice:     money.MustFromFloat(3000),
			LastPrice:     money.MustFromFloat(3000),
			IsActive:      true,
		},
	}
	return cfg
}

func newTestExchange(t *testing.T) *Exchange {
	t.Helper()
	ex, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ex
}

func TestNewWiresDepthProviderIntoFXBand(t *testing.T) {
	ex := newTestExchange(t)
	if ex.Matching == nil || ex.Risk == nil || ex.Positions == nil {
		t.Fatalf("New produced an incompletely wired Exchange: %+v", ex)
	}
	if ex.Hedge != nil {
		t.Fatalf("no brokers configured, expected Hedge to stay nil")
	}
}

func TestSubmitOrderMatchesAndSettles(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	if err := ex.Deposit("alice", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit alice: %v", err)
	}
	if err := ex.Deposit("bob", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit bob: %v", err)
	}

	ask := OrderRequest{Symbol: "BTC-PERP", UserID: "alice", Side: book.Sell, Type: book.Limit, Price: money.MustFromFloat(50000), Quantity: 1}
	if _, trades, err := ex.SubmitOrder(ctx, ask); err != nil || len(trades) != 0 {
		t.Fatalf("resting ask: trades=%v err=%v", trades, err)
	}

	bid := OrderRequest{Symbol: "BTC-PERP", UserID: "bob", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(50000), Quantity: 1}
	_, trades, err := ex.SubmitOrder(ctx, bid)
	if err != nil {
		t.Fatalf("crossing bid: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	if pos, ok := ex.Positions.GetPosition("bob", "BTC-PERP"); !ok || pos.Size != 1 {
		t.Fatalf("bob position = %+v, ok=%v, want size 1", pos, ok)
	}
}

func TestSubmitOrderSpotProductSkipsPosition(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	ask := OrderRequest{Symbol: "ETH-USD", UserID: "alice", Side: book.Sell, Type: book.Limit, Price: money.MustFromFloat(3000), Quantity: 2}
	if _, _, err := ex.SubmitOrder(ctx, ask); err != nil {
		t.Fatalf("resting ask: %v", err)
	}
	bid := OrderRequest{Symbol: "ETH-USD", UserID: "bob", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(3000), Quantity: 2}
	_, trades, err := ex.SubmitOrder(ctx, bid)
	if err != nil {
		t.Fatalf("crossing bid: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if _, ok := ex.Positions.GetPosition("bob", "ETH-USD"); ok {
		t.Fatalf("spot fill should not open a margined position")
	}
}

func TestCancelOrderJournalsAndRemoves(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()
	if err := ex.Deposit("alice", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit alice: %v", err)
	}

	req := OrderRequest{Symbol: "BTC-PERP", UserID: "alice", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(1000), Quantity: 1}
	order, _, err := ex.SubmitOrder(ctx, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := ex.CancelOrder(ctx, "BTC-PERP", order.ID, "alice"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
}

func TestRecoverReplaysOrdersIntoFreshState(t *testing.T) {
	cfg := testConfig(t)

	ex1, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := ex1.Deposit("alice", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := ex1.Deposit("bob", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	ask := OrderRequest{Symbol: "BTC-PERP", UserID: "alice", Side: book.Sell, Type: book.Limit, Price: money.MustFromFloat(50000), Quantity: 1}
	if _, _, err := ex1.SubmitOrder(ctx, ask); err != nil {
		t.Fatalf("ask: %v", err)
	}
	bid := OrderRequest{Symbol: "BTC-PERP", UserID: "bob", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(50000), Quantity: 1}
	if _, trades, err := ex1.SubmitOrder(ctx, bid); err != nil || len(trades) != 1 {
		t.Fatalf("bid: trades=%v err=%v", trades, err)
	}
	ex1.Journal.Close()
	ex1.Ledger.Close()

	// A fresh Exchange over the same event-journal directory (but not the
	// same deposits, since deposits aren't journaled in this harness) must
	// reconstruct the BTC-PERP position purely by replaying the two orders.
	cfg2 := cfg
	ex2, err := New(cfg2)
	if err != nil {
		t.Fatalf("New (recover): %v", err)
	}
	if err := ex2.Deposit("alice", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := ex2.Deposit("bob", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := ex2.Recover(ctx); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	if pos, ok := ex2.Positions.GetPosition("bob", "BTC-PERP"); !ok || pos.Size != 1 {
		t.Fatalf("recovered bob position = %+v, ok=%v, want size 1", pos, ok)
	}
}

func TestSweepFundingAppliesActiveProductRates(t *testing.T) {
	ex := newTestExchange(t)
	if err := ex.Catalog.SetFundingRate("BTC-PERP", 0.001); err != nil {
		t.Fatalf("set funding rate: %v", err)
	}
	if err := ex.Deposit("alice", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := ex.Deposit("bob", money.MustFromFloat(100000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	ctx := context.Background()
	ask := OrderRequest{Symbol: "BTC-PERP", UserID: "alice", Side: book.Sell, Type: book.Limit, Price: money.MustFromFloat(50000), Quantity: 1}
	if _, _, err := ex.SubmitOrder(ctx, ask); err != nil {
		t.Fatalf("ask: %v", err)
	}
	bid := OrderRequest{Symbol: "BTC-PERP", UserID: "bob", Side: book.Buy, Type: book.Limit, Price: money.MustFromFloat(50000), Quantity: 1}
	if _, _, err := ex.SubmitOrder(ctx, bid); err != nil {
		t.Fatalf("bid: %v", err)
	}

	before := ex.Positions.GetBalance("bob")
	ex.sweepFunding()
	after := ex.Positions.GetBalance("bob")
	if before == after {
		t.Fatalf("funding sweep did not move bob's balance: before=%v after=%v", before, after)
	}
}

func TestStartAndStop(t *testing.T) {
	ex := newTestExchange(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ex.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ex.Stop(ctx)
}
