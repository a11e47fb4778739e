package position

import (
	"fmt"
	"time"

	"brokerageProject/internal/ledger"
	"brokerageProject/internal/money"
)

// CalculateDynamicFundingRate is a direct port of
// original_source/src/position_manager.h's calculate_dynamic_funding_rate:
// the premium of last traded price over mark, dampened and clamped to the
// configured maximum per-period rate.
func CalculateDynamicFundingRate(lastPrice, markPrice money.Amount, dampening, maxRate float64) float64 {
	if markPrice <= 0 {
		return 0
	}
	premium := (lastPrice.ToFloat() - markPrice.ToFloat()) / markPrice.ToFloat()
	rate := premium * dampening
	if rate > maxRate {
		return maxRate
	}
	if rate < -maxRate {
		return -maxRate
	}
	return rate
}

// ProcessFunding settles one funding period for symbol at the given rate:
// longs pay shorts (or the reverse, when rate is negative), each position's
// transfer proportional to size · mark · rate. Because total long size need
// not equal total short size, the customer legs do not net to zero on
// their own; the remainder is booked to the exchange's own
// Revenue/Expenses:Funding:<symbol> account for that symbol (§9 Open
// Question resolution 2), keeping account-root reconciliation signed
// correctly regardless of which side the exchange nets out on. It returns
// that net customer total (positive when customers net paid).
func (m *Manager) ProcessFunding(symbol string, rate float64) (money.Amount, error) {
	if rate == 0 {
		return money.Zero, nil
	}
	product, ok := m.catalog.Get(symbol)
	if !ok {
		return money.Zero, fmt.Errorf("position: unknown symbol %s", symbol)
	}
	mark := product.MarkPrice

	m.mu.Lock()
	var postings []ledger.Posting
	var customerLegTotal money.Amount
	for _, p := range m.positions {
		if p.Symbol != symbol || p.IsFlat() {
			continue
		}
		payment := mark.MulQty(p.Size).Rate(rate) // positive = this user owes
		if payment.IsZero() {
			continue
		}
		acct := m.getOrCreateAccount(p.UserID)
		acct.Balance = acct.Balance.Sub(payment)
		postings = append(postings, ledger.Posting{
			Account: ledger.CustomerBalance(p.UserID), Amount: payment, Commodity: "QUOTE",
		})
		customerLegTotal = customerLegTotal.Add(payment)
	}
	m.mu.Unlock()

	if len(postings) == 0 {
		return money.Zero, nil
	}

	counter := customerLegTotal.Neg()
	var exchangeAccount string
	if customerLegTotal.Sign() > 0 {
		// Customers net paid in; the exchange is the net receiver.
		exchangeAccount = ledger.ExpenseFunding(symbol)
	} else {
		// Customers net received; the exchange is the net payer.
		exchangeAccount = ledger.RevenueFunding(symbol)
	}
	postings = append(postings, ledger.Posting{Account: exchangeAccount, Amount: counter, Commodity: "QUOTE"})

	tx := ledger.Transaction{
		ID:          fmt.Sprintf("funding-%s-%d", symbol, time.Now().UnixNano()),
		Date:        time.Now(),
		Description: fmt.Sprintf("funding settlement %s at rate %g", symbol, rate),
		Category:    "funding",
		Postings:    postings,
	}
	if err := tx.Balanced(); err != nil {
		panic(fmt.Sprintf("position: funding settlement for %s produced an unbalanced transaction: %v", symbol, err))
	}
	if err := m.book.Append(tx); err != nil {
		return money.Zero, fmt.Errorf("position: ledger append for funding on %s: %w", symbol, err)
	}
	return customerLegTotal, nil
}

// ProcessFundingAll runs ProcessFunding for every active product in the catalog,
// using each product's own funding_rate field as the period rate — the
// periodic (every 8 hours, per the original) sweep entry point.
func (m *Manager) ProcessFundingAll() error {
	for _, product := range m.catalog.All() {
		if !product.IsActive {
			continue
		}
		if _, err := m.ProcessFunding(product.Symbol, product.FundingRate); err != nil {
			return err
		}
	}
	return nil
}
