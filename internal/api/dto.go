package api

import (
	"fmt"
	"time"

	"brokerageProject/internal/book"
	"brokerageProject/internal/matching"
	"brokerageProject/internal/position"
)

// submitOrderRequest is the JSON body for POST /orders/submit.
type submitOrderRequest struct {
	Symbol     string  `json:"symbol"`
	UserID     string  `json:"user_id"`
	Side       string  `json:"side"`       // "BUY" or "SELL"
	Type       string  `json:"type"`       // "LIMIT", "MARKET", "IOC", "FOK", "POST_ONLY", "STOP_LIMIT"
	Price      float64 `json:"price"`      // ignored for MARKET
	StopPrice  float64 `json:"stop_price"` // required for STOP_LIMIT
	Quantity   float64 `json:"quantity"`
	ClientID   string  `json:"client_id"`
	ReduceOnly bool    `json:"reduce_only"`
}

func parseSide(s string) (book.Side, error) {
	switch s {
	case "BUY":
		return book.Buy, nil
	case "SELL":
		return book.Sell, nil
	default:
		return 0, fmt.Errorf("api: unknown side %q", s)
	}
}

func parseType(s string) (book.Type, error) {
	switch s {
	case "LIMIT":
		return book.Limit, nil
	case "MARKET":
		return book.Market, nil
	case "IOC":
		return book.IOC, nil
	case "FOK":
		return book.FOK, nil
	case "POST_ONLY":
		return book.PostOnly, nil
	case "STOP_LIMIT":
		return book.StopLimit, nil
	default:
		return 0, fmt.Errorf("api: unknown order type %q", s)
	}
}

type orderDTO struct {
	ID         uint64    `json:"id"`
	Symbol     string    `json:"symbol"`
	UserID     string    `json:"user_id"`
	Side       string    `json:"side"`
	Type       string    `json:"type"`
	Price      float64   `json:"price"`
	StopPrice  float64   `json:"stop_price,omitempty"`
	Quantity   float64   `json:"quantity"`
	FilledQty  float64   `json:"filled_qty"`
	Status     string    `json:"status"`
	ClientID   string    `json:"client_id,omitempty"`
	ReduceOnly bool      `json:"reduce_only"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toOrderDTO(o *book.Order) orderDTO {
	return orderDTO{
		ID:         o.ID,
		Symbol:     o.Symbol,
		UserID:     o.UserID,
		Side:       o.Side.String(),
		Type:       orderTypeName(o.Type),
		Price:      o.Price.ToFloat(),
		StopPrice:  o.StopPrice.ToFloat(),
		Quantity:   o.Quantity,
		FilledQty:  o.FilledQty,
		Status:     o.Status.String(),
		ClientID:   o.ClientID,
		ReduceOnly: o.ReduceOnly,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func orderTypeName(t book.Type) string {
	switch t {
	case book.Limit:
		return "LIMIT"
	case book.Market:
		return "MARKET"
	case book.IOC:
		return "IOC"
	case book.FOK:
		return "FOK"
	case book.PostOnly:
		return "POST_ONLY"
	case book.StopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

type tradeDTO struct {
	ID           uint64    `json:"id"`
	Symbol       string    `json:"symbol"`
	MakerOrderID uint64    `json:"maker_order_id"`
	TakerOrderID uint64    `json:"taker_order_id"`
	MakerUser    string    `json:"maker_user"`
	TakerUser    string    `json:"taker_user"`
	TakerSide    string    `json:"taker_side"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	Timestamp    time.Time `json:"timestamp"`
}

func toTradeDTO(t matching.Trade) tradeDTO {
	return tradeDTO{
		ID:           t.ID,
		Symbol:       t.Symbol,
		MakerOrderID: t.MakerOrderID,
		TakerOrderID: t.TakerOrderID,
		MakerUser:    t.MakerUser,
		TakerUser:    t.TakerUser,
		TakerSide:    t.TakerSide.String(),
		Price:        t.Price.ToFloat(),
		Quantity:     t.Quantity,
		Timestamp:    t.Timestamp,
	}
}

type depthLevelDTO struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

type depthResponse struct {
	Symbol string          `json:"symbol"`
	Bids   []depthLevelDTO `json:"bids"`
	Asks   []depthLevelDTO `json:"asks"`
}

type bboResponse struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid,omitempty"`
	BidOK  bool    `json:"bid_ok"`
	Ask    float64 `json:"ask,omitempty"`
	AskOK  bool    `json:"ask_ok"`
}

type accountResponse struct {
	UserID        string  `json:"user_id"`
	Balance       float64 `json:"balance"`
	MarginUsed    float64 `json:"margin_used"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Equity        float64 `json:"equity"`
	Available     float64 `json:"available"`
	MarginRatio   float64 `json:"margin_ratio"`
	IsActive      bool    `json:"is_active"`
}

func toAccountResponse(a position.UserAccount) accountResponse {
	return accountResponse{
		UserID:        a.UserID,
		Balance:       a.Balance.ToFloat(),
		MarginUsed:    a.MarginUsed.ToFloat(),
		UnrealizedPnL: a.UnrealizedPnL.ToFloat(),
		Equity:        a.Equity().ToFloat(),
		Available:     a.Available().ToFloat(),
		MarginRatio:   a.MarginRatio(),
		IsActive:      a.IsActive,
	}
}

type positionDTO struct {
	Symbol          string  `json:"symbol"`
	Size            float64 `json:"size"`
	EntryPrice      float64 `json:"entry_price"`
	MarginUsed      float64 `json:"margin_used"`
	UnrealizedPnL   float64 `json:"unrealized_pnl"`
	RealizedPnL     float64 `json:"realized_pnl"`
	LiquidationPx   float64 `json:"liquidation_price,omitempty"`
}

func toPositionDTO(p position.Position, marginRate float64) positionDTO {
	return positionDTO{
		Symbol:        p.Symbol,
		Size:          p.Size,
		EntryPrice:    p.EntryPrice.ToFloat(),
		MarginUsed:    p.MarginUsed.ToFloat(),
		UnrealizedPnL: p.UnrealizedPnL.ToFloat(),
		RealizedPnL:   p.RealizedPnL.ToFloat(),
		LiquidationPx: p.LiquidationPrice(marginRate).ToFloat(),
	}
}
