package position

import (
	"testing"

	"brokerageProject/internal/book"
	"brokerageProject/internal/money"
)

// Scenario 6: ADL after the insurance fund is exhausted.
func TestAutoDeleverageAfterFundExhaustion(t *testing.T) {
	cat := newTestCatalog(180)
	m := newTestManager(t, cat)

	if err := m.ApplyTrade(trade(1, "seed", "G", book.Buy, 100, 1.0)); err != nil {
		t.Fatalf("open G: %v", err)
	}
	m.UpdateAllPnL()
	if p, _ := m.GetPosition("G", "BTC-PERP"); p.UnrealizedPnL != money.MustFromFloat(80) {
		t.Fatalf("G unrealized = %v, want 80", p.UnrealizedPnL)
	}

	if err := m.ContributeToInsuranceFund(money.MustFromFloat(30)); err != nil {
		t.Fatalf("seed insurance fund: %v", err)
	}

	bankrupt := m.getOrCreateAccount("F")
	bankrupt.Balance = money.MustFromFloat(-100)

	m.absorbShortfall("F", "BTC-PERP")

	if got := m.InsuranceFundBalance(); got != money.Zero {
		t.Fatalf("insurance fund after exhaustion = %v, want 0", got)
	}
	if got := m.GetBalance("F"); got != money.Zero {
		t.Fatalf("bankrupt balance after ADL = %v, want 0", got)
	}
	// The fund held 30.01 (30 plus G's 0.01 insurance cut), so ADL takes
	// 69.99 of G's 80 profit; G also paid a 0.05 taker fee: 80 - 69.99 - 0.05.
	if got := m.GetBalance("G"); got != money.MustFromFloat(9.96) {
		t.Fatalf("ADL victim payout = %v, want 9.96", got)
	}
	if _, ok := m.GetPosition("G", "BTC-PERP"); ok {
		t.Fatal("expected G's position closed by ADL")
	}
}

func TestCalculateDynamicFundingRate(t *testing.T) {
	rate := CalculateDynamicFundingRate(money.MustFromFloat(101), money.MustFromFloat(100), 0.10, 0.0075)
	want := (101.0 - 100.0) / 100.0 * 0.10
	if diff := rate - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("rate = %v, want %v", rate, want)
	}

	clamped := CalculateDynamicFundingRate(money.MustFromFloat(200), money.MustFromFloat(100), 0.10, 0.0075)
	if clamped != 0.0075 {
		t.Fatalf("clamped rate = %v, want 0.0075", clamped)
	}
}

func TestProcessFundingLongsPayShorts(t *testing.T) {
	cat := newTestCatalog(100)
	m := newTestManager(t, cat)

	if err := m.ApplyTrade(trade(1, "short1", "long1", book.Buy, 100, 2.0)); err != nil {
		t.Fatalf("open long: %v", err)
	}

	transferred, err := m.ProcessFunding("BTC-PERP", 0.001)
	if err != nil {
		t.Fatalf("ProcessFunding: %v", err)
	}
	// Long and short sizes are equal, so the customer legs net to zero and
	// nothing is left for the exchange's funding account.
	if !transferred.IsZero() {
		t.Fatalf("net customer funding = %v, want 0", transferred)
	}

	longBal := m.GetBalance("long1")
	shortBal := m.GetBalance("short1")
	if longBal.Sign() >= 0 {
		t.Fatalf("long balance = %v, want negative (long pays)", longBal)
	}
	if shortBal.Sign() <= 0 {
		t.Fatalf("short balance = %v, want positive (short receives)", shortBal)
	}
}
