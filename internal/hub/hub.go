// Package hub fans trade prints out from the matching engine to anything
// subscribed to the feed. It keeps the teacher's named-channel broadcast
// shape; the per-client websocket registry and the Redis forex pub/sub
// bridge it used to carry are both gone; §6 serves trades over plain
// request/response (recent_trades), so there is nothing left to register.
package hub

import (
	"encoding/json"
	"log"

	"brokerageProject/internal/matching"
)

// Hub is the trade-print broadcast sink. Subscribers read from Broadcast;
// BroadcastTrade is the producer side called from Exchange's fan-out loop.
type Hub struct {
	Broadcast chan []byte
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{Broadcast: make(chan []byte, 8192)}
}

// BroadcastMessage queues message for delivery, dropping it if the channel
// is full rather than blocking the matching engine's trade loop.
func (h *Hub) BroadcastMessage(message []byte) {
	select {
	case h.Broadcast <- message:
	default:
		log.Printf("WARNING: Broadcast channel full, dropping message")
	}
}

// BroadcastTrade marshals t as a trade-print event and queues it. Called
// from Exchange's trade fan-out loop.
func (h *Hub) BroadcastTrade(t matching.Trade) {
	msg := map[string]any{
		"type":      "trade",
		"symbol":    t.Symbol,
		"price":     t.Price,
		"quantity":  t.Quantity,
		"side":      t.TakerSide.String(),
		"timestamp": t.Timestamp,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		log.Printf("hub: marshal trade: %v", err)
		return
	}
	h.BroadcastMessage(b)
}

// Run drains Broadcast so producers never block against a full buffer with
// no consumer attached. A future streaming transport replaces this with a
// real subscriber fan-out.
func (h *Hub) Run() {
	log.Println("Hub started")
	for range h.Broadcast {
	}
}
