package api

import (
	"net/http"
	"strconv"
)

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user_id")
	acct := s.ex.Positions.GetOrCreateAccount(user)
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user_id")
	positions := s.ex.Positions.GetAllPositions(user)

	out := make([]positionDTO, len(positions))
	for i, p := range positions {
		marginRate := 0.0
		if product, ok := s.ex.Catalog.Get(p.Symbol); ok {
			marginRate = product.MarginRate
		}
		out[i] = toPositionDTO(p, marginRate)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListFills(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user_id")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	fills := s.ex.Matching.ListFills(user, limit)
	out := make([]tradeDTO, len(fills))
	for i, t := range fills {
		out[i] = toTradeDTO(t)
	}
	writeJSON(w, http.StatusOK, out)
}
