package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brokerageProject/internal/book"
	"brokerageProject/internal/eventjournal"
	"brokerageProject/internal/matching"
	"brokerageProject/internal/money"
)

// OrderRequest is the caller-facing shape for a new order, translated into
// a *book.Order and handed to the matching engine.
type OrderRequest struct {
	Symbol     string
	UserID     string
	Side       book.Side
	Type       book.Type
	Price      money.Amount
	StopPrice  money.Amount
	Quantity   float64
	ClientID   string
	ReduceOnly bool
}

// orderSubmitPayload is the durable encoding of an OrderRequest written to
// the event journal ahead of matching, per §2's "all effects are appended
// to the crash-recovery event journal before observable commit". money.Amount
// is an int64 of micro-units and needs no intermediate string form.
type orderSubmitPayload struct {
	Symbol     string       `json:"symbol"`
	UserID     string       `json:"user_id"`
	Side       book.Side    `json:"side"`
	Type       book.Type    `json:"type"`
	Price      money.Amount `json:"price"`
	StopPrice  money.Amount `json:"stop_price"`
	Quantity   float64      `json:"quantity"`
	ClientID   string       `json:"client_id"`
	ReduceOnly bool         `json:"reduce_only"`
}

type orderCancelPayload struct {
	Symbol string `json:"symbol"`
	ID     uint64 `json:"id"`
	UserID string `json:"user_id"`
}

type tradePayload struct {
	ID           uint64       `json:"id"`
	Symbol       string       `json:"symbol"`
	MakerOrderID uint64       `json:"maker_order_id"`
	TakerOrderID uint64       `json:"taker_order_id"`
	MakerUser    string       `json:"maker_user"`
	TakerUser    string       `json:"taker_user"`
	TakerSide    book.Side    `json:"taker_side"`
	Price        money.Amount `json:"price"`
	Quantity     float64      `json:"quantity"`
	MakerFee     money.Amount `json:"maker_fee"`
	TakerFee     money.Amount `json:"taker_fee"`
	Timestamp    time.Time    `json:"timestamp"`
}

func (r OrderRequest) toOrder() *book.Order {
	return &book.Order{
		Symbol:     r.Symbol,
		UserID:     r.UserID,
		Side:       r.Side,
		Type:       r.Type,
		Price:      r.Price,
		StopPrice:  r.StopPrice,
		Quantity:   r.Quantity,
		ClientID:   r.ClientID,
		ReduceOnly: r.ReduceOnly,
	}
}

func (r OrderRequest) toPayload() orderSubmitPayload {
	return orderSubmitPayload{
		Symbol:     r.Symbol,
		UserID:     r.UserID,
		Side:       r.Side,
		Type:       r.Type,
		Price:      r.Price,
		StopPrice:  r.StopPrice,
		Quantity:   r.Quantity,
		ClientID:   r.ClientID,
		ReduceOnly: r.ReduceOnly,
	}
}

func (p orderSubmitPayload) toRequest() OrderRequest {
	return OrderRequest{
		Symbol:     p.Symbol,
		UserID:     p.UserID,
		Side:       p.Side,
		Type:       p.Type,
		Price:      p.Price,
		StopPrice:  p.StopPrice,
		Quantity:   p.Quantity,
		ClientID:   p.ClientID,
		ReduceOnly: p.ReduceOnly,
	}
}

// SubmitOrder is the exchange's single order-entry point, gluing risk
// validation, matching, position settlement, ledger posting, and hedge
// dispatch together per §2's "data flow for a trade": matching.Engine.Submit
// already performs the risk check, the match loop, and per-trade settlement
// and hedge notification internally via its injected collaborators, so this
// method's own job is the crash-recovery write-ahead around that call —
// journal the intent before matching touches the book, then journal every
// trade it produced before returning.
func (ex *Exchange) SubmitOrder(ctx context.Context, req OrderRequest) (*book.Order, []matching.Trade, error) {
	order := req.toOrder()

	if !ex.replaying {
		payload, err := json.Marshal(req.toPayload())
		if err != nil {
			return nil, nil, fmt.Errorf("exchange: marshal order submit: %w", err)
		}
		if _, err := ex.Journal.Append(eventjournal.KindOrderSubmit, payload); err != nil {
			return nil, nil, fmt.Errorf("exchange: journal order submit: %w", err)
		}
	}

	trades, err := ex.Matching.Submit(ctx, order)
	if err != nil {
		return order, nil, err
	}

	if !ex.replaying {
		for _, t := range trades {
			payload, err := json.Marshal(tradePayload{
				ID:           t.ID,
				Symbol:       t.Symbol,
				MakerOrderID: t.MakerOrderID,
				TakerOrderID: t.TakerOrderID,
				MakerUser:    t.MakerUser,
				TakerUser:    t.TakerUser,
				TakerSide:    t.TakerSide,
				Price:        t.Price,
				Quantity:     t.Quantity,
				MakerFee:     t.MakerFee,
				TakerFee:     t.TakerFee,
				Timestamp:    t.Timestamp,
			})
			if err != nil {
				return order, trades, fmt.Errorf("exchange: marshal trade %d: %w", t.ID, err)
			}
			if _, err := ex.Journal.Append(eventjournal.KindTrade, payload); err != nil {
				return order, trades, fmt.Errorf("exchange: journal trade %d: %w", t.ID, err)
			}
		}
	}

	return order, trades, nil
}

// CancelOrder cancels a resting order and journals the cancellation ahead
// of applying it, mirroring SubmitOrder's write-ahead discipline.
func (ex *Exchange) CancelOrder(ctx context.Context, symbol string, id uint64, requestingUser string) (*book.Order, error) {
	if !ex.replaying {
		payload, err := json.Marshal(orderCancelPayload{Symbol: symbol, ID: id, UserID: requestingUser})
		if err != nil {
			return nil, fmt.Errorf("exchange: marshal order cancel: %w", err)
		}
		if _, err := ex.Journal.Append(eventjournal.KindOrderCancel, payload); err != nil {
			return nil, fmt.Errorf("exchange: journal order cancel: %w", err)
		}
	}
	return ex.Matching.Cancel(symbol, id, requestingUser)
}

// ModifyOrder cancels and replaces price/quantity on a resting order.
func (ex *Exchange) ModifyOrder(ctx context.Context, symbol string, id uint64, requestingUser string, newPrice *money.Amount, newQty *float64) (bool, error) {
	return ex.Matching.Modify(symbol, id, requestingUser, newPrice, newQty)
}

// Deposit credits user's free balance, routed through the position manager.
func (ex *Exchange) Deposit(user string, amount money.Amount) error {
	return ex.Positions.Deposit(user, amount)
}

// Withdraw debits user's free balance, routed through the position manager.
func (ex *Exchange) Withdraw(user string, amount money.Amount) error {
	return ex.Positions.Withdraw(user, amount)
}
