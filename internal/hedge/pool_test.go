package hedge

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type stubBroker struct {
	name   string
	ack    *HedgeAck
	err    error
	status *HedgeAck
}

func (s *stubBroker) Name() string { return s.name }
func (s *stubBroker) SubmitHedge(ctx context.Context, o *HedgeOrder) (*HedgeAck, error) {
	return s.ack, s.err
}
func (s *stubBroker) OrderStatus(ctx context.Context, id string) (*HedgeAck, error) {
	return s.status, nil
}
func (s *stubBroker) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (s *stubBroker) CancelHedge(ctx context.Context, id string) error { return nil }
func (s *stubBroker) HealthCheck(ctx context.Context) error            { return nil }

func TestSubmitWithFailoverUsesPrimaryWhenHealthy(t *testing.T) {
	pool := NewBrokerPool()
	pool.RegisterBroker("a", &stubBroker{name: "a", ack: &HedgeAck{Status: "filled"}})
	pool.RegisterBroker("b", &stubBroker{name: "b", ack: &HedgeAck{Status: "filled"}})
	if err := pool.SetPrimary("a"); err != nil {
		t.Fatalf("SetPrimary: %v", err)
	}
	if err := pool.SetFallback("b"); err != nil {
		t.Fatalf("SetFallback: %v", err)
	}

	_, name, err := pool.SubmitWithFailover(context.Background(), &HedgeOrder{Symbol: "BTC-PERP", Quantity: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("SubmitWithFailover: %v", err)
	}
	if name != "a" {
		t.Fatalf("handled by %s, want a", name)
	}
}

func TestSubmitWithFailoverFallsBackOnPrimaryError(t *testing.T) {
	pool := NewBrokerPool()
	pool.RegisterBroker("a", &stubBroker{name: "a", err: ErrConnectionFailed})
	pool.RegisterBroker("b", &stubBroker{name: "b", ack: &HedgeAck{Status: "filled"}})
	_ = pool.SetPrimary("a")
	_ = pool.SetFallback("b")

	ack, name, err := pool.SubmitWithFailover(context.Background(), &HedgeOrder{Symbol: "BTC-PERP", Quantity: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("SubmitWithFailover: %v", err)
	}
	if name != "b" || ack.Status != "filled" {
		t.Fatalf("handled by %s (%+v), want b/filled", name, ack)
	}
}

func TestSubmitWithFailoverBothFail(t *testing.T) {
	pool := NewBrokerPool()
	pool.RegisterBroker("a", &stubBroker{name: "a", err: ErrConnectionFailed})
	pool.RegisterBroker("b", &stubBroker{name: "b", err: ErrTimeout})
	_ = pool.SetPrimary("a")
	_ = pool.SetFallback("b")

	_, _, err := pool.SubmitWithFailover(context.Background(), &HedgeOrder{Symbol: "BTC-PERP", Quantity: decimal.NewFromInt(1)})
	if err == nil {
		t.Fatal("expected combined error")
	}
	if _, ok := err.(*CombinedError); !ok {
		t.Fatalf("err = %T, want *CombinedError", err)
	}
}

func TestReconcileDropsFilledHedges(t *testing.T) {
	pool := NewBrokerPool()
	pool.RegisterBroker("a", &stubBroker{
		name:   "a",
		ack:    &HedgeAck{Status: "pending", BrokerOrderID: "order-1"},
		status: &HedgeAck{Status: "filled", BrokerOrderID: "order-1"},
	})
	_ = pool.SetPrimary("a")

	if _, _, err := pool.SubmitWithFailover(context.Background(), &HedgeOrder{ClientID: "hedge-1"}); err != nil {
		t.Fatalf("SubmitWithFailover: %v", err)
	}
	if pool.PendingCount() != 1 {
		t.Fatalf("pending count = %d, want 1", pool.PendingCount())
	}

	pool.Reconcile(context.Background())
	if pool.PendingCount() != 0 {
		t.Fatalf("pending count after reconcile = %d, want 0", pool.PendingCount())
	}
}

func TestMockBrokerFillsOrders(t *testing.T) {
	mark := decimal.NewFromInt(100)
	b := NewMockBroker("mock", BrokerConfig{FailureRate: 0, Timeout: 10 * time.Millisecond}, mark)
	ack, err := b.SubmitHedge(context.Background(), &HedgeOrder{
		Symbol: "BTC-PERP", ExternalSymbol: "BTCUSDT", Direction: DirectionBuy, Quantity: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("SubmitHedge: %v", err)
	}
	if ack.Status != "filled" {
		t.Fatalf("status = %s, want filled", ack.Status)
	}
	if ack.AveragePrice.Cmp(mark) <= 0 {
		t.Fatalf("buy fill price %v should slip above mark 100", ack.AveragePrice)
	}
}

func TestMockBrokerAlwaysFails(t *testing.T) {
	b := NewMockBroker("mock", BrokerConfig{FailureRate: 1.0}, decimal.NewFromInt(100))
	if _, err := b.SubmitHedge(context.Background(), &HedgeOrder{Quantity: decimal.NewFromInt(1)}); err == nil {
		t.Fatal("expected failure with FailureRate 1.0")
	}
}
