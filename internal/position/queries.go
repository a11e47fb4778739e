package position

import (
	"brokerageProject/internal/money"
)

// CheckMargin projects the account and position state after a hypothetical
// fill of signedQty at price and reports whether it would violate §4.2's
// margin or limit invariants. It does not mutate state; the matching engine
// (via the risk package) calls this before admitting an order, and the real
// mutation happens later through ApplyTrade against the same arithmetic.
func (m *Manager) CheckMargin(user, symbol string, signedQty float64, price money.Amount, marginRate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[user]
	if ok && !acct.IsActive {
		return ErrAccountInactive
	}

	existing := m.positions[posKey(user, symbol)]
	var curSize float64
	if existing != nil {
		curSize = existing.Size
	}
	newSize := curSize + signedQty

	if abs(newSize) > m.limits.MaxPositionPerUser+epsilon {
		return ErrPositionLimitExceeded
	}

	notional := abs(newSize) * price.ToFloat()
	if notional > m.limits.MaxNotionalPerUser+epsilon {
		return ErrNotionalLimitExceeded
	}

	// Opening a new (user, symbol) position, rather than adjusting one
	// already held, counts against the open-positions cap.
	if existing == nil || abs(curSize) < epsilon {
		if m.countOpenPositions(user) >= m.limits.MaxOpenPositions {
			return ErrTooManyOpenPositions
		}
	}

	// Additional margin required for this fill: only the incremental size
	// that increases exposure (same-side growth or a flip's residual)
	// draws new margin; a pure reduce releases margin instead and cannot
	// fail on this check.
	var marginNeeded money.Amount
	switch {
	case existing == nil || abs(curSize) < epsilon || sign(curSize) == sign(signedQty):
		marginNeeded = price.MulQty(abs(signedQty)).Rate(marginRate)
	case abs(signedQty) > abs(curSize)+epsilon:
		residual := curSize + signedQty
		marginNeeded = price.MulQty(abs(residual)).Rate(marginRate)
	default:
		marginNeeded = money.Zero
	}

	if !marginNeeded.IsZero() {
		a := m.getOrCreateAccount(user)
		if a.Available().Cmp(marginNeeded) < 0 {
			return ErrInsufficientMargin
		}
	}

	return nil
}

// countOpenPositions returns the number of distinct open positions user
// holds. Must be called under mu.
func (m *Manager) countOpenPositions(user string) int {
	n := 0
	for _, p := range m.positions {
		if p.UserID == user && !p.IsFlat() {
			n++
		}
	}
	return n
}

// UpdateAllPnL recomputes unrealized P&L for every open position against
// the catalog's current mark price, then refreshes each user account's
// aggregate unrealized_pnl (§4.2 "Mark-to-market", run on every catalog
// mark price update).
func (m *Manager) UpdateAllPnL() {
	m.mu.Lock()
	defer m.mu.Unlock()

	perUser := make(map[string]money.Amount)
	for _, p := range m.positions {
		product, ok := m.catalog.Get(p.Symbol)
		if !ok {
			continue
		}
		p.UpdateUnrealizedPnL(product.MarkPrice)
		perUser[p.UserID] = perUser[p.UserID].Add(p.UnrealizedPnL)
	}
	for user, acct := range m.accounts {
		acct.UnrealizedPnL = perUser[user]
	}
}

// GetAdlRank returns (user, symbol)'s auto-deleverage score: zero for a
// losing or flat position, otherwise (unrealized_profit/margin)·leverage,
// higher ranking first in line for ADL (§4.2).
func (m *Manager) GetAdlRank(user, symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[posKey(user, symbol)]
	if !ok {
		return 0
	}
	return p.adlScore()
}
