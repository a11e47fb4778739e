package position

import "brokerageProject/internal/money"

// updateExposure folds a fill's net size delta into the exchange's aggregate
// client exposure for symbol (§4.4.2's hedge tracker input). Must be called
// under mu.
func (m *Manager) updateExposure(symbol string, netSignedDelta float64, markPrice money.Amount) {
	e, ok := m.exposures[symbol]
	if !ok {
		e = &ExchangeExposure{Symbol: symbol}
		m.exposures[symbol] = e
	}
	e.NetPosition += netSignedDelta
	if markPrice > 0 {
		e.MarkPrice = markPrice
	}
}

// GetExposure returns a copy of the aggregate exposure for symbol.
func (m *Manager) GetExposure(symbol string) ExchangeExposure {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exposures[symbol]
	if !ok {
		return ExchangeExposure{Symbol: symbol}
	}
	return *e
}

// GetAllExposures returns a copy of every tracked symbol's exposure.
func (m *Manager) GetAllExposures() []ExchangeExposure {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExchangeExposure, 0, len(m.exposures))
	for _, e := range m.exposures {
		out = append(out, *e)
	}
	return out
}

// UpdateHedgePosition records the exchange's current external broker
// position for symbol, called by the hedge tracker after a fill with the
// broker (§4.4.2 "update_hedge_position").
func (m *Manager) UpdateHedgePosition(symbol string, hedgeSize float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exposures[symbol]
	if !ok {
		e = &ExchangeExposure{Symbol: symbol}
		m.exposures[symbol] = e
	}
	e.HedgePosition = hedgeSize
}

// GetNetExposure returns the unhedged exposure for symbol.
func (m *Manager) GetNetExposure(symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exposures[symbol]
	if !ok {
		return 0
	}
	return e.Unhedged()
}

// GetAllNetExposures returns the unhedged exposure for every tracked symbol.
func (m *Manager) GetAllNetExposures() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.exposures))
	for sym, e := range m.exposures {
		out[sym] = e.Unhedged()
	}
	return out
}

// GetOpenInterest returns Σ|size| across every open position on symbol.
func (m *Manager) GetOpenInterest(symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, p := range m.positions {
		if p.Symbol == symbol {
			total += p.AbsSize()
		}
	}
	return total
}

// CheckOpenInterestLimit reports whether adding additionalSize of open
// interest on symbol would exceed the configured per-product cap.
func (m *Manager) CheckOpenInterestLimit(symbol string, additionalSize float64) error {
	oi := m.GetOpenInterest(symbol)
	if oi+abs(additionalSize) > m.limits.MaxOpenInterestPerProduct {
		return errOpenInterestExceeded(symbol)
	}
	return nil
}
