package risk

import (
	"testing"

	"brokerageProject/internal/book"
	"brokerageProject/internal/money"
)

func testConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Level1: 0.05, Level2: 0.10, Level3: 0.15}
}

func TestCheckOrderAllowsWithinBand(t *testing.T) {
	cb := NewCircuitBreaker(newFakeCatalog(btcPerp(100)), testConfig(), 10)
	if err := cb.CheckOrder("BTC-PERP", book.Buy, money.MustFromFloat(102)); err != nil {
		t.Fatalf("CheckOrder within band: %v", err)
	}
}

func TestOnTradeTriggersLimitUpAndBlocksBuy(t *testing.T) {
	cb := NewCircuitBreaker(newFakeCatalog(btcPerp(100)), testConfig(), 10)

	cb.OnTrade("BTC-PERP", money.MustFromFloat(107)) // +7% triggers level1 LIMIT_UP
	if got := cb.StateOf("BTC-PERP"); got != LimitUp {
		t.Fatalf("state = %v, want LIMIT_UP", got)
	}

	if err := cb.CheckOrder("BTC-PERP", book.Buy, money.MustFromFloat(108)); err == nil {
		t.Fatal("expected buy order blocked during LIMIT_UP")
	}
	if err := cb.CheckOrder("BTC-PERP", book.Sell, money.MustFromFloat(99)); err != nil {
		t.Fatalf("sell order should remain admitted during LIMIT_UP: %v", err)
	}
}

func TestOnTradeTriggersHaltAtLevel3(t *testing.T) {
	cb := NewCircuitBreaker(newFakeCatalog(btcPerp(100)), testConfig(), 10)

	cb.OnTrade("BTC-PERP", money.MustFromFloat(120)) // +20% crosses level3
	if got := cb.StateOf("BTC-PERP"); got != Halted {
		t.Fatalf("state = %v, want HALTED", got)
	}

	if err := cb.CheckOrder("BTC-PERP", book.Buy, money.MustFromFloat(121)); err == nil {
		t.Fatal("expected buy order rejected while halted")
	}
	if err := cb.CheckOrder("BTC-PERP", book.Sell, money.MustFromFloat(99)); err == nil {
		t.Fatal("expected sell order rejected while halted too")
	}
}

func TestLimitStateThrottlesOppositeSide(t *testing.T) {
	cb := NewCircuitBreaker(newFakeCatalog(btcPerp(100)), testConfig(), 1)
	cb.OnTrade("BTC-PERP", money.MustFromFloat(107))

	allowed := 0
	for i := 0; i < 5; i++ {
		if err := cb.CheckOrder("BTC-PERP", book.Sell, money.MustFromFloat(99)); err == nil {
			allowed++
		}
	}
	if allowed >= 5 {
		t.Fatalf("expected throttle to reject some opposite-side orders, allowed = %d/5", allowed)
	}
}

func TestMarketOrderSkipsBandCheck(t *testing.T) {
	cb := NewCircuitBreaker(newFakeCatalog(btcPerp(100)), testConfig(), 10)
	cb.OnTrade("BTC-PERP", money.MustFromFloat(107))
	if err := cb.CheckOrder("BTC-PERP", book.Buy, money.Zero); err != nil {
		t.Fatalf("market order should skip band check: %v", err)
	}
}
