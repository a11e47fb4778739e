package position

import (
	"fmt"
	"sort"
	"time"

	"brokerageProject/internal/ledger"
	"brokerageProject/internal/money"
)

// liquidationTiers are the fractions of a position's size closed at each
// successive graduated-liquidation pass (§4.2, §8 scenario 5): 25% of the
// original size, then 50%, then whatever remains. Each tier only fires if
// the account is still underwater after the previous one.
var liquidationTiers = []float64{0.25, 0.50, 1.0}

// LiquidationSweep scans every open position and force-closes, in graduated
// steps, any whose account has fallen below maintenance (margin ratio < 1).
// It returns the users whose accounts were touched, for caller logging.
// Grounded on original_source/src/position_manager.h's check_liquidations.
func (m *Manager) LiquidationSweep() []string {
	m.mu.Lock()
	keys := make([]string, 0, len(m.positions))
	for k := range m.positions {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	var touched []string
	for _, key := range keys {
		user, symbol, ok := splitPosKey(key)
		if !ok {
			continue
		}
		if m.liquidateOne(user, symbol) {
			touched = append(touched, user)
		}
	}
	return touched
}

// liquidateOne runs the graduated close for one (user, symbol) position if
// its account is underwater, then absorbs any residual negative balance
// via the insurance fund and, failing that, auto-deleveraging.
func (m *Manager) liquidateOne(user, symbol string) bool {
	m.mu.Lock()
	p, ok := m.positions[posKey(user, symbol)]
	if !ok || p.IsFlat() {
		m.mu.Unlock()
		return false
	}
	acct := m.getOrCreateAccount(user)
	if acct.MarginUsed.IsZero() || acct.MarginRatio() >= 1.0 {
		m.mu.Unlock()
		return false
	}
	product, ok := m.catalog.Get(symbol)
	if !ok {
		m.mu.Unlock()
		return false
	}
	originalSize := p.AbsSize()
	mark := product.MarkPrice
	m.mu.Unlock()

	var postings []ledger.Posting
	closedAny := false

	for _, tier := range liquidationTiers {
		m.mu.Lock()
		p, ok := m.positions[posKey(user, symbol)]
		if !ok || p.IsFlat() {
			m.mu.Unlock()
			break
		}
		acct := m.getOrCreateAccount(user)
		if acct.MarginRatio() >= 1.0 {
			m.mu.Unlock()
			break
		}

		closeQty := tier * originalSize
		if tier >= 1.0 || closeQty > p.AbsSize() {
			closeQty = p.AbsSize()
		}
		result := m.forceClose(p, acct, closeQty, mark)
		if key := posKey(user, symbol); p.IsFlat() {
			delete(m.positions, key)
		}
		m.mu.Unlock()

		postings = append(postings, marginPostings(user, result)...)
		closedAny = true
	}

	if !closedAny {
		return false
	}

	tx := ledger.Transaction{
		ID:          fmt.Sprintf("liquidation-%s-%s-%d", user, symbol, time.Now().UnixNano()),
		Date:        time.Now(),
		Description: fmt.Sprintf("graduated liquidation of %s on %s", user, symbol),
		Category:    "liquidations",
		Postings:    postings,
	}
	if len(tx.Postings) > 0 {
		if err := tx.Balanced(); err != nil {
			panic(fmt.Sprintf("position: liquidation of %s/%s produced an unbalanced transaction: %v", user, symbol, err))
		}
		if err := m.book.Append(tx); err != nil {
			// The position state has already changed in memory; a failed
			// durable append is a fatal condition per §7, not recoverable
			// by retry at this layer.
			panic(fmt.Sprintf("position: ledger append for liquidation of %s/%s: %v", user, symbol, err))
		}
	}

	m.absorbShortfall(user, symbol)
	return true
}

// forceClose reduces p by closeQty at price, mirroring applyFill's
// opposite-side-reduce case but without a counterparty trade. Must be
// called under mu.
func (m *Manager) forceClose(p *Position, acct *UserAccount, closeQty float64, price money.Amount) fillResult {
	if closeQty <= 0 || p.AbsSize() < epsilon {
		return fillResult{}
	}
	realized := price.Sub(p.EntryPrice).MulQty(closeQty).MulQty(sign(p.Size))
	marginReleased := p.MarginUsed.MulQty(closeQty / p.AbsSize())

	p.RealizedPnL = p.RealizedPnL.Add(realized)
	p.MarginUsed = p.MarginUsed.Sub(marginReleased)
	p.Size -= closeQty * sign(p.Size)
	p.UpdatedAt = time.Now()

	// The closed slice is now realized: revalue what is left at price so the
	// account's equity does not count the closed loss or profit twice.
	prevUnrealized := p.UnrealizedPnL
	p.UpdateUnrealizedPnL(price)

	acct.MarginUsed = acct.MarginUsed.Sub(marginReleased)
	acct.Balance = acct.Balance.Add(realized)
	acct.UnrealizedPnL = acct.UnrealizedPnL.Sub(prevUnrealized).Add(p.UnrealizedPnL)

	return fillResult{marginDelta: marginReleased.Neg(), realizedDelta: realized}
}

// absorbShortfall covers a negative balance left behind by a just-completed
// liquidation, first from the insurance fund and then, if that is
// insufficient, by auto-deleveraging profitable opposing positions on the
// same symbol (§4.2, §8 scenarios 5 and 6).
func (m *Manager) absorbShortfall(bankruptUser, symbol string) {
	m.mu.Lock()
	acct := m.getOrCreateAccount(bankruptUser)
	shortfall := acct.Balance.Neg()
	m.mu.Unlock()
	if shortfall.Sign() <= 0 {
		return
	}

	m.mu.Lock()
	drawn := shortfall
	if m.insuranceFund.Cmp(drawn) < 0 {
		drawn = m.insuranceFund
	}
	if drawn.Sign() > 0 {
		m.insuranceFund = m.insuranceFund.Sub(drawn)
		acct.Balance = acct.Balance.Add(drawn)
		shortfall = shortfall.Sub(drawn)
	}
	m.mu.Unlock()

	if drawn.Sign() > 0 {
		_ = m.book.Append(ledger.Transaction{
			ID:          fmt.Sprintf("liquidation-%s-%s-insurance-%d", bankruptUser, symbol, time.Now().UnixNano()),
			Date:        time.Now(),
			Description: fmt.Sprintf("insurance fund absorbs shortfall for %s on %s", bankruptUser, symbol),
			Category:    "liquidations",
			Postings: []ledger.Posting{
				{Account: ledger.ExpenseInsuranceLiq, Amount: drawn, Commodity: "QUOTE"},
				{Account: ledger.AssetInsuranceFund, Amount: drawn.Neg(), Commodity: "QUOTE"},
			},
		})
	}

	if shortfall.Sign() > 0 {
		m.autoDeleverage(bankruptUser, symbol, shortfall)
	}
}

// adlCandidate is a ranked opposing position eligible for ADL.
type adlCandidate struct {
	user  string
	score float64
}

// autoDeleverage socializes the remaining shortfall across the most
// profitable opposing positions on symbol, ranked by adlScore descending,
// force-closing each at mark and diverting enough of its profit into
// Revenue:Trading:ADL to cover the shortfall before crediting the
// position holder the remainder (§4.2, §8 scenario 6).
func (m *Manager) autoDeleverage(bankruptUser, symbol string, shortfall money.Amount) {
	for shortfall.Sign() > 0 {
		m.mu.Lock()
		var candidates []adlCandidate
		for _, p := range m.positions {
			if p.Symbol != symbol || p.UserID == bankruptUser {
				continue
			}
			if score := p.adlScore(); score > 0 {
				candidates = append(candidates, adlCandidate{user: p.UserID, score: score})
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
		if len(candidates) == 0 {
			m.mu.Unlock()
			return
		}
		victim := candidates[0].user
		p := m.positions[posKey(victim, symbol)]
		acct := m.getOrCreateAccount(victim)
		product, ok := m.catalog.Get(symbol)
		if !ok {
			m.mu.Unlock()
			return
		}

		closeQty := p.AbsSize()
		result := m.forceClose(p, acct, closeQty, product.MarkPrice)
		delete(m.positions, posKey(victim, symbol))

		adlTake := shortfall
		if result.realizedDelta.Cmp(adlTake) < 0 {
			adlTake = result.realizedDelta
		}
		if adlTake.Sign() < 0 {
			adlTake = money.Zero
		}
		payout := result.realizedDelta.Sub(adlTake)

		// forceClose already credited the victim's account with the
		// full realized P&L; claw back the socialized share so only
		// payout remains with them, matching the ledger legs below.
		acct.Balance = acct.Balance.Sub(adlTake)

		bankrupt := m.getOrCreateAccount(bankruptUser)
		bankrupt.Balance = bankrupt.Balance.Add(adlTake)
		shortfall = shortfall.Sub(adlTake)
		m.mu.Unlock()

		postings := marginPostings(victim, fillResult{marginDelta: result.marginDelta})
		postings = append(postings,
			ledger.Posting{Account: ledger.ExpenseTradingPayout, Amount: result.realizedDelta, Commodity: "QUOTE"},
			ledger.Posting{Account: ledger.CustomerBalance(victim), Amount: payout.Neg(), Commodity: "QUOTE"},
			ledger.Posting{Account: ledger.RevenueTradingADL, Amount: adlTake.Neg(), Commodity: "QUOTE"},
		)
		tx := ledger.Transaction{
			ID:          fmt.Sprintf("adl-%s-%s-%d", victim, symbol, time.Now().UnixNano()),
			Date:        time.Now(),
			Description: fmt.Sprintf("auto-deleverage %s on %s to cover %s", victim, symbol, bankruptUser),
			Category:    "liquidations",
			Postings:    postings,
		}
		if err := tx.Balanced(); err != nil {
			panic(fmt.Sprintf("position: ADL of %s/%s produced an unbalanced transaction: %v", victim, symbol, err))
		}
		if err := m.book.Append(tx); err != nil {
			panic(fmt.Sprintf("position: ledger append for ADL of %s/%s: %v", victim, symbol, err))
		}
	}
}

func splitPosKey(key string) (user, symbol string, ok bool) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
