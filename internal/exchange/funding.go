package exchange

import (
	"encoding/json"
	"fmt"
	"log"

	"brokerageProject/internal/eventjournal"
)

// fundingPayload records one symbol's funding settlement so Recover can
// replay the exact same customer/exchange transfer deterministically — the
// rate itself is journaled rather than recomputed, since recomputing it
// from CalculateDynamicFundingRate would require the mark/last price at the
// moment of the original sweep, which isn't itself part of this record.
type fundingPayload struct {
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
}

type liquidationPayload struct {
	Users []string `json:"users"`
}

// sweepFunding journals and then applies one funding period for every
// active product, the periodic entry point §4.2 calls for.
func (ex *Exchange) sweepFunding() {
	for _, product := range ex.Catalog.All() {
		if !product.IsActive || product.FundingRate == 0 {
			continue
		}
		if err := ex.processFunding(product.Symbol, product.FundingRate); err != nil {
			log.Printf("[Exchange] funding sweep %s: %v", product.Symbol, err)
		}
	}
}

func (ex *Exchange) processFunding(symbol string, rate float64) error {
	if !ex.replaying {
		payload, err := json.Marshal(fundingPayload{Symbol: symbol, Rate: rate})
		if err != nil {
			return fmt.Errorf("exchange: marshal funding payload: %w", err)
		}
		if _, err := ex.Journal.Append(eventjournal.KindFunding, payload); err != nil {
			return fmt.Errorf("exchange: journal funding: %w", err)
		}
	}
	_, err := ex.Positions.ProcessFunding(symbol, rate)
	return err
}

// sweepLiquidations runs the maintenance-margin liquidation pass and
// journals which accounts were touched, for audit only: liquidation depends
// on the live mark price at sweep time, which isn't journaled, so Recover
// does not replay this record — it is observational, not authoritative.
func (ex *Exchange) sweepLiquidations() {
	touched := ex.Positions.LiquidationSweep()
	if len(touched) == 0 {
		return
	}
	log.Printf("[Exchange] liquidation sweep touched %d accounts", len(touched))
	if ex.replaying {
		return
	}
	payload, err := json.Marshal(liquidationPayload{Users: touched})
	if err != nil {
		log.Printf("[Exchange] marshal liquidation payload: %v", err)
		return
	}
	if _, err := ex.Journal.Append(eventjournal.KindLiquidation, payload); err != nil {
		log.Printf("[Exchange] journal liquidation: %v", err)
	}
}
