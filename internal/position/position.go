// Package position implements the position and margin manager (§4.2): one
// Position per (user, symbol), aggregated into per-user UserAccount state,
// margin and open-interest limit enforcement, mark-to-market, graduated
// liquidation, auto-deleveraging, and the insurance fund. It is adapted
// from the teacher's MarginService/LiquidationService/HedgingService,
// which perform the same bookkeeping against Postgres float64 columns;
// here it is integer-first and in-memory, with Postgres as the durable
// mirror reached through the ledger and event journal.
package position

import (
	"fmt"
	"time"

	"brokerageProject/internal/money"
)

// Position is keyed by (UserID, Symbol). Size is signed: positive long,
// negative short. |Size| below epsilon means the position is closed and
// removed from the manager's map (§3 invariant).
type Position struct {
	UserID string
	Symbol string

	Size       float64
	EntryPrice money.Amount
	MarginUsed money.Amount

	UnrealizedPnL money.Amount
	RealizedPnL   money.Amount

	OpenedAt  time.Time
	UpdatedAt time.Time
}

const epsilon = 1e-9

func (p *Position) IsLong() bool     { return p.Size > 0 }
func (p *Position) IsShort() bool    { return p.Size < 0 }
func (p *Position) AbsSize() float64 { return abs(p.Size) }
func (p *Position) IsFlat() bool     { return abs(p.Size) < epsilon }

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	if f > 0 {
		return 1
	}
	return 0
}

// UpdateUnrealizedPnL recomputes UnrealizedPnL from the product's current
// mark price (§4.2 "Mark-to-market").
func (p *Position) UpdateUnrealizedPnL(mark money.Amount) {
	diff := mark.Sub(p.EntryPrice)
	p.UnrealizedPnL = diff.MulQty(p.Size)
}

// LiquidationPrice is the closed-form trigger price adopted verbatim from
// original_source/src/position_manager.h's liquidation_price(): maintenance
// margin is half of initial margin; solve for the mark move that exhausts
// margin_used minus that maintenance requirement.
func (p *Position) LiquidationPrice(marginRate float64) money.Amount {
	if p.AbsSize() < epsilon || p.EntryPrice <= 0 {
		return money.Zero
	}
	ep := p.EntryPrice.ToFloat()
	mu := p.MarginUsed.ToFloat()

	notional := p.AbsSize() * ep
	if notional <= 0 {
		return money.Zero
	}
	maintenanceRate := marginRate * 0.5
	maintenanceMargin := notional * maintenanceRate
	lossCapacity := mu - maintenanceMargin
	priceMoveFraction := lossCapacity / notional

	if p.IsLong() {
		return money.MustFromFloat(ep * (1.0 - priceMoveFraction))
	}
	return money.MustFromFloat(ep * (1.0 + priceMoveFraction))
}

// leverage is the position's effective leverage, notional over margin used,
// the denominator ADL scoring needs (§4.2 "(unrealized_profit/margin)·leverage").
func (p *Position) leverage() float64 {
	if p.MarginUsed.IsZero() {
		return 0
	}
	notional := p.AbsSize() * p.EntryPrice.ToFloat()
	return notional / p.MarginUsed.ToFloat()
}

// adlScore ranks profitable opposing positions for ADL selection.
func (p *Position) adlScore() float64 {
	profit := p.UnrealizedPnL.ToFloat()
	if profit <= 0 || p.MarginUsed.IsZero() {
		return 0
	}
	margin := p.MarginUsed.ToFloat()
	return (profit / margin) * p.leverage()
}

// UserAccount is the per-user aggregate: free balance plus the sum of
// margin_used and unrealized_pnl across every open position.
type UserAccount struct {
	UserID        string
	Balance       money.Amount
	MarginUsed    money.Amount
	UnrealizedPnL money.Amount
	IsActive      bool
}

// Equity is balance plus unrealized PnL.
func (a *UserAccount) Equity() money.Amount { return a.Balance.Add(a.UnrealizedPnL) }

// Available is equity minus margin in use; the free collateral a user may
// draw on for a new position or a withdrawal.
func (a *UserAccount) Available() money.Amount { return a.Equity().Sub(a.MarginUsed) }

// MarginRatio is equity / margin_used, or 999 when nothing is locked.
// Below 1.0 the account is eligible for liquidation sweep.
func (a *UserAccount) MarginRatio() float64 {
	if a.MarginUsed.IsZero() {
		return 999.0
	}
	return a.Equity().ToFloat() / a.MarginUsed.ToFloat()
}

// ExchangeExposure is the aggregated, per-symbol view the hedge tracker
// consumes: the sum of every client position's size, and what the exchange
// currently holds at its external broker to offset it.
type ExchangeExposure struct {
	Symbol        string
	NetPosition   float64 // Σ client position.Size
	HedgePosition float64 // position held at the external broker
	MarkPrice     money.Amount
}

// Unhedged is the portion of client exposure the exchange has not yet
// offset externally.
func (e ExchangeExposure) Unhedged() float64 { return e.NetPosition + e.HedgePosition }

// ExposureQuote is the unhedged exposure valued in quote currency, the
// quantity §4.4.2's hedge_threshold_quote test is compared against.
func (e ExchangeExposure) ExposureQuote() float64 {
	return abs(e.Unhedged()) * e.MarkPrice.ToFloat()
}

func posKey(user, symbol string) string {
	return fmt.Sprintf("%s:%s", user, symbol)
}
