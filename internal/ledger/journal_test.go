package ledger

import (
	"testing"
	"time"

	"brokerageProject/internal/money"
)

func mustOpen(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(j.Close)
	return j
}

func TestAppendRejectsUnbalancedTransaction(t *testing.T) {
	j := mustOpen(t)

	tx := Transaction{
		ID:          "tx1",
		Date:        time.Now(),
		Description: "bad deposit",
		Category:    "deposits",
		Postings: []Posting{
			{Account: AssetBank, Amount: money.MustFromFloat(100), Commodity: "USD"},
			{Account: CustomerBalance("u1"), Amount: money.MustFromFloat(-99), Commodity: "USD"},
		},
	}
	if err := j.Append(tx); err == nil {
		t.Fatal("expected rejection of unbalanced transaction")
	}
}

func TestAppendBalancedDepositUpdatesBalance(t *testing.T) {
	j := mustOpen(t)

	tx := Transaction{
		ID:          "tx1",
		Date:        time.Now(),
		Description: "deposit",
		Category:    "deposits",
		Postings: []Posting{
			{Account: AssetBank, Amount: money.MustFromFloat(100), Commodity: "USD"},
			{Account: CustomerBalance("u1"), Amount: money.MustFromFloat(-100), Commodity: "USD"},
		},
	}
	if err := j.Append(tx); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got := j.Balance(CustomerBalance("u1"), "USD")
	if got != money.MustFromFloat(-100) {
		t.Fatalf("Balance = %v, want -100", got)
	}
}

func TestAppendUnknownCategory(t *testing.T) {
	j := mustOpen(t)
	tx := Transaction{
		ID:       "tx1",
		Date:     time.Now(),
		Category: "nope",
		Postings: []Posting{
			{Account: "A", Amount: money.MustFromFloat(1), Commodity: "USD"},
			{Account: "B", Amount: money.MustFromFloat(-1), Commodity: "USD"},
		},
	}
	if err := j.Append(tx); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestBalanceSheetConservation(t *testing.T) {
	j := mustOpen(t)

	deposit := Transaction{
		ID: "d1", Date: time.Now(), Category: "deposits", Description: "deposit",
		Postings: []Posting{
			{Account: AssetBank, Amount: money.MustFromFloat(1000), Commodity: "USD"},
			{Account: CustomerBalance("u1"), Amount: money.MustFromFloat(-1000), Commodity: "USD"},
		},
	}
	if err := j.Append(deposit); err != nil {
		t.Fatalf("Append deposit: %v", err)
	}

	sheet := j.BalanceSheet("USD")
	if sheet["Assets"].Add(sheet["Liabilities"]) != money.Zero {
		t.Fatalf("assets + liabilities = %v, want 0", sheet["Assets"].Add(sheet["Liabilities"]))
	}
}

func TestRegisterReturnsPostingsInOrder(t *testing.T) {
	j := mustOpen(t)

	for i := 0; i < 3; i++ {
		amt := money.MustFromFloat(float64(10 * (i + 1)))
		tx := Transaction{
			ID: "tx", Date: time.Now(), Category: "deposits", Description: "deposit",
			Postings: []Posting{
				{Account: AssetBank, Amount: amt, Commodity: "USD"},
				{Account: CustomerBalance("u1"), Amount: amt.Neg(), Commodity: "USD"},
			},
		}
		if err := j.Append(tx); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	postings := j.Register(CustomerBalance("u1"), "USD")
	if len(postings) != 3 {
		t.Fatalf("Register returned %d postings, want 3", len(postings))
	}
	for i, p := range postings {
		if want := money.MustFromFloat(float64(-10 * (i + 1))); p.Amount != want {
			t.Fatalf("posting %d amount = %v, want %v", i, p.Amount, want)
		}
	}
}
