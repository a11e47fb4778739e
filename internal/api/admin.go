package api

import (
	"fmt"
	"net/http"

	"brokerageProject/internal/money"
)

type symbolRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleHaltSymbol(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ex.Catalog.Deactivate(req.Symbol); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logAdminAction(r, "halt_symbol", req.Symbol, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"halted": true})
}

func (s *Server) handleResumeSymbol(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ex.Catalog.Activate(req.Symbol); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logAdminAction(r, "resume_symbol", req.Symbol, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"resumed": true})
}

func (s *Server) handleHaltMarket(w http.ResponseWriter, r *http.Request) {
	var halted []string
	for _, p := range s.ex.Catalog.All() {
		if err := s.ex.Catalog.Deactivate(p.Symbol); err == nil {
			halted = append(halted, p.Symbol)
		}
	}
	s.logAdminAction(r, "halt_market", "", map[string]any{"symbols": halted})
	writeJSON(w, http.StatusOK, map[string]any{"halted_symbols": halted})
}

func (s *Server) handleResumeMarket(w http.ResponseWriter, r *http.Request) {
	var resumed []string
	for _, p := range s.ex.Catalog.All() {
		if err := s.ex.Catalog.Activate(p.Symbol); err == nil {
			resumed = append(resumed, p.Symbol)
		}
	}
	s.logAdminAction(r, "resume_market", "", map[string]any{"symbols": resumed})
	writeJSON(w, http.StatusOK, map[string]any{"resumed_symbols": resumed})
}

func (s *Server) handleSetReferencePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	price, err := money.FromFloat(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.ex.Risk.Breaker().SetReferencePrice(req.Symbol, price)
	s.logAdminAction(r, "set_reference_price", req.Symbol, map[string]any{"price": req.Price})
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleContributeInsuranceFund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := money.FromFloat(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ex.Positions.ContributeToInsuranceFund(amount); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.logAdminAction(r, "insurance_fund.contribute", "", map[string]any{"amount": req.Amount})
	writeJSON(w, http.StatusOK, map[string]float64{"insurance_fund_balance": s.ex.Positions.InsuranceFundBalance().ToFloat()})
}

func (s *Server) handleExposures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ex.Positions.GetAllExposures())
}

func (s *Server) handleHedges(w http.ResponseWriter, r *http.Request) {
	if s.ex.Brokers == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("api: no hedge brokers configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"brokers":        s.ex.Brokers.ListBrokers(),
		"pending_hedges": s.ex.Brokers.PendingCount(),
	})
}
