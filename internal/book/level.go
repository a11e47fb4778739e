package book

// PriceLevel is a FIFO queue of resting orders at a single price, keyed by
// money.Amount in OrderBook. Orders are appended at the tail on insertion
// and consumed from the head during matching; a partially filled head
// order stays at the head, preserving time priority exactly (§3 OrderBook
// invariant: queue FIFO within a price level).
type PriceLevel struct {
	orders []*Order
}

// Push appends order to the tail of the queue.
func (l *PriceLevel) Push(o *Order) {
	l.orders = append(l.orders, o)
}

// Front returns the head order without removing it, or nil if empty.
func (l *PriceLevel) Front() *Order {
	if len(l.orders) == 0 {
		return nil
	}
	return l.orders[0]
}

// PopFront removes and returns the head order.
func (l *PriceLevel) PopFront() *Order {
	if len(l.orders) == 0 {
		return nil
	}
	o := l.orders[0]
	l.orders = l.orders[1:]
	return o
}

// Remove deletes order id from anywhere in the queue (used by cancel),
// preserving the relative order of the remainder.
func (l *PriceLevel) Remove(id uint64) (*Order, bool) {
	for i, o := range l.orders {
		if o.ID == id {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return o, true
		}
	}
	return nil, false
}

// Empty reports whether the level has no resting orders.
func (l *PriceLevel) Empty() bool { return len(l.orders) == 0 }

// Len returns the number of resting orders at this level.
func (l *PriceLevel) Len() int { return len(l.orders) }

// TotalQty sums the remaining quantity of every order at this level, used
// for FOK pre-checks and depth snapshots.
func (l *PriceLevel) TotalQty() float64 {
	var sum float64
	for _, o := range l.orders {
		sum += o.Remaining()
	}
	return sum
}

// Orders returns a read-only copy of the resting orders, oldest first.
func (l *PriceLevel) Orders() []*Order {
	out := make([]*Order, len(l.orders))
	copy(out, l.orders)
	return out
}
