// Package hedge defines the narrow collaborator the risk package's exposure
// tracker uses to offset client exposure at an external broker. The
// production broker implementation is out of scope (§4.4.2); this package
// only specifies the contract and ships a simulated reference/test double.
package hedge

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a hedge instruction, mirroring the teacher's
// lp.OrderSide but named for the hedge domain rather than client order flow.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// HedgeOrder is a single offsetting instruction emitted by the exposure
// tracker: offset Quantity of ExternalSymbol in Direction at the broker.
// Quantity is decimal.Decimal, not money.Amount: this struct crosses the
// wire to an external counterparty, the same boundary internal/lp crosses
// with its ExecutionRequest, and §3's fixed-point type stays internal.
type HedgeOrder struct {
	Symbol         string // internal product symbol driving the hedge
	ExternalSymbol string // broker-side symbol (catalog.Product.ExternalSymbol)
	Direction      Direction
	Quantity       decimal.Decimal
	ClientID       string // internal reference for reconciliation
}

// HedgeAck is the broker's response to a HedgeOrder, or to an order-status
// poll for one already submitted.
type HedgeAck struct {
	BrokerOrderID string
	Status        string // "filled", "partial", "pending", "rejected"
	FilledQty     decimal.Decimal
	AveragePrice  decimal.Decimal
	ErrorMessage  string
	Timestamp     time.Time
}

// Broker is the interface every external hedge counterparty implements,
// grounded directly on internal/lp.LiquidityProvider's method set
// (ExecuteOrder/GetOrderStatus/GetBalance/CancelOrder/HealthCheck) renamed
// for the hedge domain.
type Broker interface {
	// Name returns the broker's identifier (e.g. "binance", "mock").
	Name() string

	// SubmitHedge sends a hedge instruction for execution.
	SubmitHedge(ctx context.Context, o *HedgeOrder) (*HedgeAck, error)

	// OrderStatus queries the broker for a previously submitted hedge's
	// current status, used by the reconciliation sweep.
	OrderStatus(ctx context.Context, brokerOrderID string) (*HedgeAck, error)

	// Balance retrieves the exchange's account balance at the broker for
	// currency, used to confirm hedge capacity before submission.
	Balance(ctx context.Context, currency string) (decimal.Decimal, error)

	// CancelHedge attempts to cancel a still-open hedge order.
	CancelHedge(ctx context.Context, brokerOrderID string) error

	// HealthCheck verifies connectivity to the broker.
	HealthCheck(ctx context.Context) error
}

// BrokerConfig holds per-broker connection and simulation parameters.
type BrokerConfig struct {
	Name       string
	Enabled    bool
	Timeout    time.Duration
	MaxRetries int

	// Simulation-only fields, consumed by NewMockBroker.
	FailureRate float64
	SlippageBps int
}
