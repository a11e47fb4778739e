// Package ledger implements the durable, double-entry, multi-commodity
// accounting journal. Every balance change in the system is expressed as a
// balanced Transaction; Journal.Append is the ledger's one non-negotiable
// gate and refuses anything that does not sum to zero per commodity.
package ledger

import (
	"fmt"
	"time"

	"brokerageProject/internal/money"
)

// Posting is one leg of a transaction: a signed amount of a commodity
// moving through an account.
type Posting struct {
	Account   string
	Amount    money.Amount
	Commodity string
}

// Transaction is a dated, described group of postings. Category selects
// which append-only file the transaction is durably recorded in
// (deposits, trades, margin, funding, liquidations, hedging, prices).
type Transaction struct {
	ID          string
	Date        time.Time
	Description string
	Category    string
	Postings    []Posting
	Audit       string // non-empty for admin-override annotations, rendered as "[AUDIT] ..."
}

// Balanced reports whether the transaction's postings sum to zero for every
// commodity present. This is the §4.3 invariant the journal enforces on
// every Append.
func (t Transaction) Balanced() error {
	sums := make(map[string]money.Amount)
	for _, p := range t.Postings {
		sums[p.Commodity] = sums[p.Commodity].Add(p.Amount)
	}
	for commodity, sum := range sums {
		if !sum.IsZero() {
			return fmt.Errorf("ledger: transaction %s unbalanced for commodity %s: sum = %s", t.ID, commodity, sum)
		}
	}
	if len(t.Postings) < 2 {
		return fmt.Errorf("ledger: transaction %s has fewer than 2 postings", t.ID)
	}
	return nil
}
