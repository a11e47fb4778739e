package position

import (
	"context"
	"fmt"
	"time"

	"brokerageProject/internal/book"
	"brokerageProject/internal/catalog"
	"brokerageProject/internal/ledger"
	"brokerageProject/internal/matching"
	"brokerageProject/internal/money"
)

// Settle implements matching.Settlement: the engine invokes this once per
// trade, immediately after it executes, to settle both counterparties
// (§4.1 "Integration with position/risk"). Spot products settle as a
// direct two-party transfer (§4.2 settle_spot); everything else settles as
// a margined position.
func (m *Manager) Settle(ctx context.Context, t matching.Trade) error {
	product, ok := m.catalog.Get(t.Symbol)
	if !ok {
		return fmt.Errorf("position: unknown symbol %s", t.Symbol)
	}
	if product.IsSpot() {
		return m.settleSpot(t, product)
	}
	return m.ApplyTrade(t)
}

// settleSpot posts the trade directly to each side's commodity balances,
// with no margin leg and no position opened, fees charged in quote currency
// the same way the margined path charges them.
func (m *Manager) settleSpot(t matching.Trade, product catalog.Product) error {
	takerFee := t.Price.MulQty(t.Quantity).Rate(product.TakerFee)
	makerFee := t.Price.MulQty(t.Quantity).Rate(product.MakerFee)

	buyer, seller := t.MakerUser, t.TakerUser
	takerIsBuyer := t.TakerSide == book.Buy
	if takerIsBuyer {
		buyer, seller = t.TakerUser, t.MakerUser
	}

	return ledger.PostSpotTrade(m.book, ledger.SpotTradeParams{
		TradeID:       t.ID,
		Timestamp:     t.Timestamp,
		Symbol:        t.Symbol,
		Buyer:         buyer,
		Seller:        seller,
		BaseCurrency:  product.BaseCurrency,
		QuoteCurrency: product.QuoteCurrency,
		Qty:           t.Quantity,
		Price:         t.Price,
		TakerFee:      takerFee,
		MakerFee:      makerFee,
		TakerIsBuyer:  takerIsBuyer,
	})
}

// ApplyTrade settles both sides of a margined trade: opens or adjusts each
// counterparty's position per §4.2's same-side-increase / opposite-side-
// reduce / flip-through-zero rules, deducts the taker's and the maker's fee
// (both recognized in full as exchange revenue), moves the insurance slice
// of the taker fee from bank cash into the insurance fund, and posts every
// leg to the ledger as one or more balanced transactions.
func (m *Manager) ApplyTrade(t matching.Trade) error {
	product, ok := m.catalog.Get(t.Symbol)
	if !ok {
		return fmt.Errorf("position: unknown symbol %s", t.Symbol)
	}

	takerSide := t.TakerSide
	makerSide := takerSide.Opposite()

	makerSigned := signedSize(makerSide, t.Quantity)
	takerSigned := signedSize(takerSide, t.Quantity)

	m.mu.Lock()
	makerResult := m.applyFill(t.MakerUser, t.Symbol, makerSigned, t.Price, product.MarginRate)
	takerResult := m.applyFill(t.TakerUser, t.Symbol, takerSigned, t.Price, product.MarginRate)

	takerFee := t.Price.MulQty(t.Quantity).Rate(product.TakerFee)
	makerFee := t.Price.MulQty(t.Quantity).Rate(product.MakerFee)
	insuranceCut := takerFee.Rate(m.limits.InsuranceContributionRate)

	takerAcct := m.getOrCreateAccount(t.TakerUser)
	takerAcct.Balance = takerAcct.Balance.Sub(takerFee)
	makerAcct := m.getOrCreateAccount(t.MakerUser)
	makerAcct.Balance = makerAcct.Balance.Sub(makerFee)
	m.insuranceFund = m.insuranceFund.Add(insuranceCut)
	m.mu.Unlock()

	var postings []ledger.Posting
	postings = append(postings, marginPostings(t.MakerUser, makerResult)...)
	postings = append(postings, marginPostings(t.TakerUser, takerResult)...)
	// Fee collection: each side's balance decreases (liability decrease, a
	// positive posting) and the full amount is recognized as fee revenue
	// (a credit). Self-contained and balanced without touching the
	// insurance fund.
	postings = append(postings,
		ledger.Posting{Account: ledger.CustomerBalance(t.TakerUser), Amount: takerFee, Commodity: "QUOTE"},
		ledger.Posting{Account: ledger.CustomerBalance(t.MakerUser), Amount: makerFee, Commodity: "QUOTE"},
		ledger.Posting{Account: ledger.RevenueTradingFees, Amount: takerFee.Add(makerFee).Neg(), Commodity: "QUOTE"},
	)
	if err := (ledger.Transaction{Postings: postings}).Balanced(); err != nil {
		// A non-balancing fee/margin posting set is a bug, not a user-facing
		// condition (§7 "ledger non-balance detected on append" is fatal).
		panic(fmt.Sprintf("position: trade %d produced an unbalanced ledger transaction: %v", t.ID, err))
	}
	description := fmt.Sprintf("trade %d %s %s@%s", t.ID, t.Symbol, fmtQty(t.Quantity), t.Price)
	if err := ledger.PostTrade(m.book, t.ID, t.Timestamp, description, postings); err != nil {
		return fmt.Errorf("position: ledger append for trade %d: %w", t.ID, err)
	}

	// Insurance fund contribution: a separate transfer out of general bank
	// cash into the segregated fund, mirroring original_source's pattern of
	// recording one logical settlement as several independently-balanced
	// transactions (record_trade_multicurrency's buy/sell/spread legs)
	// rather than overloading a single multi-destination entry.
	if !insuranceCut.IsZero() {
		if err := m.book.Append(ledger.Transaction{
			ID:          fmt.Sprintf("trade-%d-insurance", t.ID),
			Date:        t.Timestamp,
			Description: fmt.Sprintf("insurance contribution from trade %d", t.ID),
			Category:    "trades",
			Postings: []ledger.Posting{
				{Account: ledger.AssetInsuranceFund, Amount: insuranceCut, Commodity: "QUOTE"},
				{Account: ledger.AssetBank, Amount: insuranceCut.Neg(), Commodity: "QUOTE"},
			},
		}); err != nil {
			return fmt.Errorf("position: insurance ledger append for trade %d: %w", t.ID, err)
		}
	}

	m.updateExposure(t.Symbol, makerSigned+takerSigned, product.MarkPrice)
	return nil
}

func signedSize(side book.Side, qty float64) float64 {
	if side == book.Buy {
		return qty
	}
	return -qty
}

func fmtQty(q float64) string {
	return fmt.Sprintf("%g", q)
}

// fillResult carries the deltas a single fill produced, for ledger posting.
type fillResult struct {
	marginDelta   money.Amount // positive = locked, negative = released
	realizedDelta money.Amount
}

// applyFill adjusts user's position on symbol by signedQty (positive adds
// to long / reduces short) at fillPrice, implementing §4.2's three cases.
// Must be called under mu.
func (m *Manager) applyFill(user, symbol string, signedQty float64, fillPrice money.Amount, marginRate float64) fillResult {
	key := posKey(user, symbol)
	p, existed := m.positions[key]
	if !existed {
		p = &Position{UserID: user, Symbol: symbol, OpenedAt: time.Now()}
		m.positions[key] = p
	}
	p.UpdatedAt = time.Now()
	acct := m.getOrCreateAccount(user)

	var result fillResult

	switch {
	case p.AbsSize() < epsilon || sign(p.Size) == sign(signedQty) || p.Size == 0:
		// Flat, or same-side increase: weighted-average entry.
		newSize := p.Size + signedQty
		if p.AbsSize() < epsilon {
			p.EntryPrice = fillPrice
		} else {
			oldNotional := p.AbsSize() * p.EntryPrice.ToFloat()
			addNotional := abs(signedQty) * fillPrice.ToFloat()
			p.EntryPrice = money.MustFromFloat((oldNotional + addNotional) / abs(newSize))
		}
		marginAdd := fillPrice.MulQty(abs(signedQty)).Rate(marginRate)
		p.MarginUsed = p.MarginUsed.Add(marginAdd)
		p.Size = newSize
		result.marginDelta = marginAdd
		acct.MarginUsed = acct.MarginUsed.Add(marginAdd)

	case abs(signedQty) <= p.AbsSize()+epsilon:
		// Opposite-side reduce (including an exact close to flat).
		closeQty := abs(signedQty)
		realized := fillPrice.Sub(p.EntryPrice).MulQty(closeQty).MulQty(sign(p.Size))
		marginReleased := p.MarginUsed.MulQty(closeQty / p.AbsSize())

		p.RealizedPnL = p.RealizedPnL.Add(realized)
		p.MarginUsed = p.MarginUsed.Sub(marginReleased)
		p.Size += signedQty
		result.marginDelta = marginReleased.Neg()
		result.realizedDelta = realized

		acct.MarginUsed = acct.MarginUsed.Sub(marginReleased)
		acct.Balance = acct.Balance.Add(realized)

		if p.AbsSize() < epsilon {
			delete(m.positions, key)
		}

	default:
		// Flip through zero: close existing fully, realizing P&L and
		// releasing its margin, then open the remainder fresh.
		closeQty := p.AbsSize()
		realized := fillPrice.Sub(p.EntryPrice).MulQty(closeQty).MulQty(sign(p.Size))
		marginReleased := p.MarginUsed

		residual := p.Size + signedQty // same sign as signedQty, smaller magnitude
		marginAdd := fillPrice.MulQty(abs(residual)).Rate(marginRate)

		p.RealizedPnL = p.RealizedPnL.Add(realized)
		p.EntryPrice = fillPrice
		p.MarginUsed = marginAdd
		p.Size = residual

		result.marginDelta = marginAdd.Sub(marginReleased)
		result.realizedDelta = realized

		acct.MarginUsed = acct.MarginUsed.Add(marginAdd).Sub(marginReleased)
		acct.Balance = acct.Balance.Add(realized)
	}

	return result
}

// marginPostings renders a fillResult as the ledger legs §4.3 prescribes:
// a margin lock/release pair against the customer's own sub-accounts, plus
// a realized P&L leg against exchange revenue/expense when non-zero.
func marginPostings(user string, r fillResult) []ledger.Posting {
	var out []ledger.Posting
	if !r.marginDelta.IsZero() {
		// Margin lock of M (marginDelta > 0): DR Balance +M, CR Margin -M.
		// Release (marginDelta < 0) is the same formula run in reverse.
		out = append(out,
			ledger.Posting{Account: ledger.CustomerBalance(user), Amount: r.marginDelta, Commodity: "QUOTE"},
			ledger.Posting{Account: ledger.CustomerMargin(user), Amount: r.marginDelta.Neg(), Commodity: "QUOTE"},
		)
	}
	if !r.realizedDelta.IsZero() {
		// CustomerBalance always moves by -pnl; the counter-leg is whichever
		// of Expense/Revenue pnl's sign names (mirrors record_pnl).
		out = append(out,
			ledger.Posting{Account: ledger.CustomerBalance(user), Amount: r.realizedDelta.Neg(), Commodity: "QUOTE"},
		)
		if r.realizedDelta.Sign() > 0 {
			out = append(out, ledger.Posting{Account: ledger.ExpenseTradingPayout, Amount: r.realizedDelta, Commodity: "QUOTE"})
		} else {
			out = append(out, ledger.Posting{Account: ledger.RevenueTradingCustLoss, Amount: r.realizedDelta, Commodity: "QUOTE"})
		}
	}
	return out
}
