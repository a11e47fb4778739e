package api

import (
	"net/http"

	"brokerageProject/internal/money"
)

type treasuryRequest struct {
	UserID string  `json:"user_id"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req treasuryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := money.FromFloat(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ex.Deposit(req.UserID, amount); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(s.ex.Positions.GetOrCreateAccount(req.UserID)))
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req treasuryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := money.FromFloat(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ex.Withdraw(req.UserID, amount); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(s.ex.Positions.GetOrCreateAccount(req.UserID)))
}
