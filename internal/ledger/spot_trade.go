package ledger

import (
	"fmt"
	"time"

	"brokerageProject/internal/money"
)

// SpotTradeParams describes one spot fill: buyer and seller exchange
// BaseCurrency for QuoteCurrency directly, with no margin leg.
type SpotTradeParams struct {
	TradeID       uint64
	Timestamp     time.Time
	Symbol        string
	Buyer         string
	Seller        string
	BaseCurrency  string
	QuoteCurrency string
	Qty           float64
	Price         money.Amount
	TakerFee      money.Amount // in QuoteCurrency, charged to the taker
	MakerFee      money.Amount // in QuoteCurrency, charged to the maker
	TakerIsBuyer  bool
}

// PostTrade posts one margined trade's pre-computed postings — margin
// lock/release, realized P&L, and fee collection for both counterparties —
// as a single balanced transaction, mirroring the teacher's §4.3 margined
// settlement path. The caller (position.Manager.ApplyTrade) computes the
// postings since only it holds the position state the deltas derive from;
// PostTrade's job is solely the durable, all-or-nothing Append.
func PostTrade(j *Journal, tradeID uint64, ts time.Time, description string, postings []Posting) error {
	tx := Transaction{
		ID:          fmt.Sprintf("trade-%d", tradeID),
		Date:        ts,
		Description: description,
		Category:    "trades",
		Postings:    postings,
	}
	return j.Append(tx)
}

// PostSpotTrade posts a direct two-party commodity/quote transfer with no
// margin leg, mirroring original_source/src/ledger_writer.h's
// record_trade_multicurrency: the buyer's quote balance decreases by the
// notional and base balance increases by qty; the seller's legs mirror
// that exactly, so each commodity nets to zero independent of the other.
func PostSpotTrade(j *Journal, p SpotTradeParams) error {
	notional := p.Price.MulQty(p.Qty)

	postings := []Posting{
		{Account: CustomerCommodityBalance(p.Buyer, p.QuoteCurrency), Amount: notional, Commodity: p.QuoteCurrency},
		{Account: CustomerCommodityBalance(p.Buyer, p.BaseCurrency), Amount: money.MustFromFloat(-p.Qty), Commodity: p.BaseCurrency},
		{Account: CustomerCommodityBalance(p.Seller, p.BaseCurrency), Amount: money.MustFromFloat(p.Qty), Commodity: p.BaseCurrency},
		{Account: CustomerCommodityBalance(p.Seller, p.QuoteCurrency), Amount: notional.Neg(), Commodity: p.QuoteCurrency},
	}

	totalFee := p.TakerFee.Add(p.MakerFee)
	if !totalFee.IsZero() {
		buyerFee, sellerFee := p.MakerFee, p.TakerFee
		if p.TakerIsBuyer {
			buyerFee, sellerFee = p.TakerFee, p.MakerFee
		}
		if !buyerFee.IsZero() {
			postings = append(postings, Posting{Account: CustomerCommodityBalance(p.Buyer, p.QuoteCurrency), Amount: buyerFee, Commodity: p.QuoteCurrency})
		}
		if !sellerFee.IsZero() {
			postings = append(postings, Posting{Account: CustomerCommodityBalance(p.Seller, p.QuoteCurrency), Amount: sellerFee, Commodity: p.QuoteCurrency})
		}
		postings = append(postings, Posting{Account: RevenueTradingFees, Amount: totalFee.Neg(), Commodity: p.QuoteCurrency})
	}

	tx := Transaction{
		ID:          fmt.Sprintf("spot-trade-%d", p.TradeID),
		Date:        p.Timestamp,
		Description: fmt.Sprintf("spot trade %d %s %g@%s", p.TradeID, p.Symbol, p.Qty, p.Price),
		Category:    "trades",
		Postings:    postings,
	}
	return j.Append(tx)
}
