package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"brokerageProject/internal/catalog"
	"brokerageProject/internal/exchange"
	"brokerageProject/internal/money"
	"brokerageProject/internal/utils"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := exchange.DefaultConfig()
	cfg.LedgerDir = t.TempDir()
	cfg.EventJournalDir = t.TempDir()
	cfg.EventJournalRollover = 1 << 20
	cfg.TradeChanCapacity = 64
	cfg.Products = []catalog.Product{
		{
			Symbol:        "BTC-PERP",
			Category:      "perpetual",
			QuoteCurrency: "USD",
			TickSize:      money.MustFromFloat(0.5),
			MinOrderSize:  0.001,
			MaxOrderSize:  100,
			MarginRate:    0.1,
			MakerFee:      0.0002,
			TakerFee:      0.0005,
			MarkPrice:     money.MustFromFloat(50000),
			LastPrice:     money.MustFromFloat(50000),
			IsActive:      true,
		},
	}

	ex, err := exchange.New(cfg)
	if err != nil {
		t.Fatalf("exchange.New: %v", err)
	}
	return NewServer(ex, nil)
}

func doJSON(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestDepositAndGetAccount(t *testing.T) {
	s := newTestServer(t)
	mux := s.Routes()

	rec := doJSON(t, mux, "POST", "/treasury/deposit", treasuryRequest{UserID: "alice", Amount: 1000})
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, "GET", "/account?user_id=alice", nil)
	var acct accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &acct); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if acct.Balance != 1000 {
		t.Fatalf("balance = %v, want 1000", acct.Balance)
	}
}

func TestSubmitOrderCrossesAndFills(t *testing.T) {
	s := newTestServer(t)
	mux := s.Routes()

	doJSON(t, mux, "POST", "/treasury/deposit", treasuryRequest{UserID: "alice", Amount: 100000})
	doJSON(t, mux, "POST", "/treasury/deposit", treasuryRequest{UserID: "bob", Amount: 100000})

	rec := doJSON(t, mux, "POST", "/orders/submit", submitOrderRequest{
		Symbol: "BTC-PERP", UserID: "alice", Side: "SELL", Type: "LIMIT", Price: 50000, Quantity: 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resting ask: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, "POST", "/orders/submit", submitOrderRequest{
		Symbol: "BTC-PERP", UserID: "bob", Side: "BUY", Type: "LIMIT", Price: 50000, Quantity: 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("crossing bid: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Trades []tradeDTO `json:"trades"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(resp.Trades))
	}

	rec = doJSON(t, mux, "GET", "/account/positions?user_id=bob", nil)
	var positions []positionDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &positions); err != nil {
		t.Fatalf("decode positions: %v", err)
	}
	if len(positions) != 1 || positions[0].Size != 1 {
		t.Fatalf("bob positions = %+v, want one long position of size 1", positions)
	}
}

func TestCancelOrderRejectsNonOwner(t *testing.T) {
	s := newTestServer(t)
	mux := s.Routes()

	doJSON(t, mux, "POST", "/treasury/deposit", treasuryRequest{UserID: "alice", Amount: 100000})
	rec := doJSON(t, mux, "POST", "/orders/submit", submitOrderRequest{
		Symbol: "BTC-PERP", UserID: "alice", Side: "BUY", Type: "LIMIT", Price: 1000, Quantity: 1,
	})
	var resp struct {
		Order orderDTO `json:"order"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}

	rec = doJSON(t, mux, "POST", "/orders/cancel", map[string]any{
		"symbol": "BTC-PERP", "id": resp.Order.ID, "user_id": "mallory",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cancel by non-owner: status %d, want 403", rec.Code)
	}
}

func TestAdminHaltRequiresToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	s := newTestServer(t)
	mux := s.Routes()

	rec := doJSON(t, mux, "POST", "/admin/halt_symbol", symbolRequest{Symbol: "BTC-PERP"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("halt without token: status %d, want 401", rec.Code)
	}

	token, err := utils.GenerateAdminToken("ops", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}
	req := httptest.NewRequest("POST", "/admin/halt_symbol", bytes.NewBufferString(`{"symbol":"BTC-PERP"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("halt with token: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, "POST", "/orders/submit", submitOrderRequest{
		Symbol: "BTC-PERP", UserID: "alice", Side: "BUY", Type: "LIMIT", Price: 1000, Quantity: 1,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("submit on halted symbol: status %d, want 422", rec.Code)
	}
}
