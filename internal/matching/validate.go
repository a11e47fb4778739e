package matching

import (
	"fmt"

	"brokerageProject/internal/book"
	"brokerageProject/internal/catalog"
)

// validate checks the purely local, catalog-derived constraints from §4.1:
// price on tick for priced order types, quantity within bounds. Margin,
// position, and circuit-breaker checks happen later via RiskGate, which
// needs the symbol lock and position-manager state this function does not.
func (e *Engine) validate(o *book.Order, product catalog.Product) error {
	if o.Quantity <= 0 {
		return fmt.Errorf("matching: non-positive quantity")
	}
	if err := product.ValidateOrderSize(o.Quantity); err != nil {
		return err
	}
	switch o.Type {
	case book.Market:
		// no price to validate
	case book.StopLimit:
		if err := product.ValidatePrice(o.Price); err != nil {
			return err
		}
		if o.StopPrice <= 0 {
			return fmt.Errorf("matching: STOP_LIMIT requires a positive stop_price")
		}
	default:
		if err := product.ValidatePrice(o.Price); err != nil {
			return err
		}
	}
	return nil
}
