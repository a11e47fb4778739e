package api

import (
	"net/http"
	"strconv"
)

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	levels := 10
	if v := r.URL.Query().Get("levels"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			levels = n
		}
	}

	bids, asks := s.ex.Matching.Depth(symbol, levels)
	resp := depthResponse{Symbol: symbol}
	for _, l := range bids {
		resp.Bids = append(resp.Bids, depthLevelDTO{Price: l.Price.ToFloat(), Qty: l.Qty})
	}
	for _, l := range asks {
		resp.Asks = append(resp.Asks, depthLevelDTO{Price: l.Price.ToFloat(), Qty: l.Qty})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBBO(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	bid, bidOK, ask, askOK := s.ex.Matching.BBO(symbol)
	writeJSON(w, http.StatusOK, bboResponse{
		Symbol: symbol,
		Bid:    bid.ToFloat(),
		BidOK:  bidOK,
		Ask:    ask.ToFloat(),
		AskOK:  askOK,
	})
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	trades := s.ex.Matching.RecentTrades(symbol, limit)
	out := make([]tradeDTO, len(trades))
	for i, t := range trades {
		out[i] = toTradeDTO(t)
	}
	writeJSON(w, http.StatusOK, out)
}
