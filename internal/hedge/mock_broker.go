package hedge

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// mockBroker is a simulated broker: no external calls, configurable
// latency, failure rate, and slippage. Adapted from internal/lp.MockLP;
// used only by this package's tests, never by production wiring (the real
// broker is out of scope per §4.4.2).
type mockBroker struct {
	name            string
	simulateLatency time.Duration
	failureRate     float64
	slippageBps     int
	markPrice       decimal.Decimal
}

// NewMockBroker returns a Broker simulating a real hedge counterparty,
// optionally overriding cfg's defaults. markPrice anchors the simulated
// fill price before slippage is applied.
func NewMockBroker(name string, cfg BrokerConfig, markPrice decimal.Decimal) Broker {
	latency := 50 * time.Millisecond
	if cfg.Timeout > 0 {
		latency = cfg.Timeout / 10
	}
	failureRate := cfg.FailureRate
	if failureRate == 0 {
		failureRate = 0.02
	}
	slippage := cfg.SlippageBps
	if slippage == 0 {
		slippage = 5
	}
	return &mockBroker{
		name:            name,
		simulateLatency: latency,
		failureRate:     failureRate,
		slippageBps:     slippage,
		markPrice:       markPrice,
	}
}

func (m *mockBroker) Name() string { return m.name }

func (m *mockBroker) SubmitHedge(ctx context.Context, o *HedgeOrder) (*HedgeAck, error) {
	time.Sleep(m.simulateLatency)
	select {
	case <-ctx.Done():
		return nil, ErrTimeout
	default:
	}

	if rand.Float64() < m.failureRate {
		return &HedgeAck{Status: "rejected", ErrorMessage: "mock broker: insufficient liquidity", Timestamp: time.Now()}, ErrInsufficientLiquidity
	}

	slip := decimal.NewFromInt(int64(m.slippageBps)).Div(decimal.NewFromInt(10000))
	price := m.markPrice
	if o.Direction == DirectionBuy {
		price = price.Mul(decimal.NewFromInt(1).Add(slip))
	} else {
		price = price.Mul(decimal.NewFromInt(1).Sub(slip))
	}

	return &HedgeAck{
		BrokerOrderID: fmt.Sprintf("MOCK-%s", uuid.New().String()[:8]),
		Status:        "filled",
		FilledQty:     o.Quantity,
		AveragePrice:  price,
		Timestamp:     time.Now(),
	}, nil
}

func (m *mockBroker) OrderStatus(ctx context.Context, brokerOrderID string) (*HedgeAck, error) {
	time.Sleep(m.simulateLatency / 2)
	select {
	case <-ctx.Done():
		return nil, ErrTimeout
	default:
	}
	return &HedgeAck{
		BrokerOrderID: brokerOrderID,
		Status:        "filled",
		Timestamp:     time.Now(),
	}, nil
}

func (m *mockBroker) Balance(ctx context.Context, currency string) (decimal.Decimal, error) {
	time.Sleep(m.simulateLatency / 2)
	select {
	case <-ctx.Done():
		return decimal.Zero, ErrTimeout
	default:
	}
	return decimal.NewFromInt(1_000_000), nil
}

func (m *mockBroker) CancelHedge(ctx context.Context, brokerOrderID string) error {
	time.Sleep(m.simulateLatency / 2)
	select {
	case <-ctx.Done():
		return ErrTimeout
	default:
	}
	if rand.Float64() < 0.1 {
		return fmt.Errorf("hedge: order %s already filled, cannot cancel", brokerOrderID)
	}
	return nil
}

func (m *mockBroker) HealthCheck(ctx context.Context) error {
	time.Sleep(m.simulateLatency / 2)
	select {
	case <-ctx.Done():
		return ErrTimeout
	default:
	}
	if rand.Float64() < 0.01 {
		return ErrConnectionFailed
	}
	return nil
}
