package api

import (
	"fmt"
	"net/http"
	"strconv"

	"brokerageProject/internal/book"
	"brokerageProject/internal/exchange"
	"brokerageProject/internal/money"
)

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	typ, err := parseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var price, stopPrice money.Amount
	if typ != book.Market {
		price, err = money.FromFloat(req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if typ == book.StopLimit {
		stopPrice, err = money.FromFloat(req.StopPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	order, trades, err := s.ex.SubmitOrder(r.Context(), exchange.OrderRequest{
		Symbol:     req.Symbol,
		UserID:     req.UserID,
		Side:       side,
		Type:       typ,
		Price:      price,
		StopPrice:  stopPrice,
		Quantity:   req.Quantity,
		ClientID:   req.ClientID,
		ReduceOnly: req.ReduceOnly,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	tradeDTOs := make([]tradeDTO, len(trades))
	for i, t := range trades {
		tradeDTOs[i] = toTradeDTO(t)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order":  toOrderDTO(order),
		"trades": tradeDTOs,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
		ID     uint64 `json:"id"`
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := s.ex.CancelOrder(r.Context(), req.Symbol, req.ID, req.UserID)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("api: order %d not found on %s", req.ID, req.Symbol))
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

func (s *Server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol   string   `json:"symbol"`
		ID       uint64   `json:"id"`
		UserID   string   `json:"user_id"`
		Price    *float64 `json:"price"`
		Quantity *float64 `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var newPrice *money.Amount
	if req.Price != nil {
		p, err := money.FromFloat(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		newPrice = &p
	}

	ok, err := s.ex.ModifyOrder(r.Context(), req.Symbol, req.ID, req.UserID, newPrice, req.Quantity)
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("api: order %d not found on %s", req.ID, req.Symbol))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"modified": true})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("api: invalid id: %w", err))
		return
	}

	o, ok := s.ex.Matching.GetOrder(symbol, id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("api: order %d not found on %s", id, symbol))
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

func (s *Server) handleListOpenOrders(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	user := r.URL.Query().Get("user_id")

	orders := s.ex.Matching.ListOpenOrders(symbol, user)
	out := make([]orderDTO, len(orders))
	for i, o := range orders {
		out[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, out)
}
