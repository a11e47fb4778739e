// Package api is the thin §6 RPC surface over the exchange composition
// root: each operation is a plain function taking *exchange.Exchange plus
// request fields, with a stdlib net/http adapter (http.ServeMux) wrapping
// it as a JSON endpoint for manual exercising. There is no REST resource
// modeling, no SSE stream, and no session layer here — those are the
// out-of-scope front end; only the admin bearer-token check is wired.
package api

import (
	"encoding/json"
	"net/http"

	"brokerageProject/internal/exchange"
	"brokerageProject/internal/middleware"
	"brokerageProject/internal/utils"
)

// Server adapts an *exchange.Exchange to HTTP. Every handler method is a
// thin decode/call/encode wrapper; the domain logic lives in internal/exchange
// and its collaborators.
type Server struct {
	ex    *exchange.Exchange
	audit *utils.AuditLogger
}

// NewServer wires ex as the domain root. audit may be nil, in which case
// admin.* handlers skip the audit_log write (no DATABASE_URL configured).
func NewServer(ex *exchange.Exchange, audit *utils.AuditLogger) *Server {
	return &Server{ex: ex, audit: audit}
}

func (s *Server) logAdminAction(r *http.Request, action, symbol string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	actor := "unknown"
	if claims, ok := r.Context().Value(middleware.AdminKey).(*utils.AdminClaims); ok {
		actor = claims.Subject
	}
	s.audit.Log(r.Context(), actor, action, symbol, detail)
}

// Routes builds the ServeMux the teacher's cmd/server/main.go historically
// built by hand, one route per §6 operation.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders/submit", s.handleSubmitOrder)
	mux.HandleFunc("POST /orders/cancel", s.handleCancelOrder)
	mux.HandleFunc("POST /orders/modify", s.handleModifyOrder)
	mux.HandleFunc("GET /orders/get", s.handleGetOrder)
	mux.HandleFunc("GET /orders/open", s.handleListOpenOrders)

	mux.HandleFunc("GET /market/depth", s.handleDepth)
	mux.HandleFunc("GET /market/bbo", s.handleBBO)
	mux.HandleFunc("GET /market/trades", s.handleRecentTrades)

	mux.HandleFunc("GET /account", s.handleGetAccount)
	mux.HandleFunc("GET /account/positions", s.handleListPositions)
	mux.HandleFunc("GET /account/fills", s.handleListFills)

	mux.HandleFunc("POST /treasury/deposit", s.handleDeposit)
	mux.HandleFunc("POST /treasury/withdraw", s.handleWithdraw)

	mux.HandleFunc("POST /admin/halt_symbol", middleware.RequireAdmin(s.handleHaltSymbol))
	mux.HandleFunc("POST /admin/resume_symbol", middleware.RequireAdmin(s.handleResumeSymbol))
	mux.HandleFunc("POST /admin/halt_market", middleware.RequireAdmin(s.handleHaltMarket))
	mux.HandleFunc("POST /admin/resume_market", middleware.RequireAdmin(s.handleResumeMarket))
	mux.HandleFunc("POST /admin/set_reference_price", middleware.RequireAdmin(s.handleSetReferencePrice))
	mux.HandleFunc("POST /admin/insurance_fund/contribute", middleware.RequireAdmin(s.handleContributeInsuranceFund))
	mux.HandleFunc("GET /admin/exposures", middleware.RequireAdmin(s.handleExposures))
	mux.HandleFunc("GET /admin/hedges", middleware.RequireAdmin(s.handleHedges))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	utils.RespondWithJSONError(w, status, "error", err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
