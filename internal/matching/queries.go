package matching

import (
	"fmt"
	"sort"

	"brokerageProject/internal/book"
	"brokerageProject/internal/money"
)

// Cancel removes order id from symbol's book, if it is still live. It
// returns (nil, nil) if the order is absent or already in a terminal
// state — matching §4.1's cancel(symbol, id) → Option<Order> contract.
func (e *Engine) Cancel(symbol string, id uint64, requestingUser string) (*book.Order, error) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	b := e.bookFor(symbol)
	if o, ok := b.RemoveStop(id); ok {
		if o.UserID != requestingUser {
			b.AddStop(o)
			return nil, fmt.Errorf("matching: only the owning user may cancel order %d", id)
		}
		o.Status = book.Cancelled
		return o, nil
	}

	o, ok := b.Remove(id)
	if !ok {
		return nil, nil
	}
	if o.UserID != requestingUser {
		b.Rest(o) // restore: not the owner's order to cancel
		return nil, fmt.Errorf("matching: only the owning user may cancel order %d", id)
	}
	o.Status = book.Cancelled
	return o, nil
}

// Modify is cancel-and-replace: a price change or a quantity increase
// loses time priority (re-enters at the tail of its new/same level); a
// same-price quantity decrease retains priority in place (§4.1).
func (e *Engine) Modify(symbol string, id uint64, requestingUser string, newPrice *money.Amount, newQty *float64) (bool, error) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	b := e.bookFor(symbol)
	// A same-price quantity decrease on the caller's own resting order is
	// applied in place, so the order keeps its position in its level's queue.
	if cur, ok := b.Get(id); ok && cur.UserID == requestingUser && cur.Status != book.Pending &&
		(newPrice == nil || *newPrice == cur.Price) && (newQty == nil || *newQty <= cur.Quantity) {
		if newQty != nil {
			cur.Quantity = *newQty
		}
		return true, nil
	}

	o, ok := b.Remove(id)
	if !ok {
		return false, nil
	}
	if o.UserID != requestingUser {
		b.Rest(o)
		return false, fmt.Errorf("matching: only the owning user may modify order %d", id)
	}

	priceChanged := newPrice != nil && *newPrice != o.Price
	quantityIncreased := newQty != nil && *newQty > o.Quantity

	if newPrice != nil {
		o.Price = *newPrice
	}
	if newQty != nil {
		o.Quantity = *newQty
	}

	if priceChanged || quantityIncreased {
		o.Status = book.Pending
		b.Rest(o) // fresh time priority: tail of the (possibly new) level
	} else {
		// same price, quantity decrease only: retains priority in place.
		b.RestAtFront(o)
	}
	return true, nil
}

// Depth returns up to levels price levels of resting quantity per side.
func (e *Engine) Depth(symbol string, levels int) (bids, asks []book.DepthLevel) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()
	b := e.bookFor(symbol)
	return b.Depth(levels)
}

// BBO returns the best bid and ask for symbol.
func (e *Engine) BBO(symbol string) (bid money.Amount, bidOK bool, ask money.Amount, askOK bool) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()
	b := e.bookFor(symbol)
	return b.BBO()
}

// ListFills returns up to limit of user's most recent fills across every
// symbol, newest first. Like RecentTrades, this reads the in-memory buffer,
// not the durable event journal.
func (e *Engine) ListFills(user string, limit int) []Trade {
	e.recentMu.Lock()
	var all []Trade
	for _, trades := range e.recent {
		for _, t := range trades {
			if t.MakerUser == user || t.TakerUser == user {
				all = append(all, t)
			}
		}
	}
	e.recentMu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
