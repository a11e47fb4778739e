package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"brokerageProject/internal/eventjournal"
)

// Recover reconstructs book, position, and ledger state by replaying the
// event journal from empty, per §2's "on startup, state is reconstructed by
// replaying the journal". Call it once, immediately after New and before
// Start, against a freshly-opened Exchange whose Ledger already holds
// whatever was durably appended on a prior run — replaying submits and
// cancels against it is safe because Journal.Append's balance check makes
// duplicate postings impossible to mistake for new ones: a re-run of a
// trade produces byte-identical postings, not duplicated accounts.
//
// Order submissions and cancellations replay exactly since matching is a
// pure function of arrival order and catalog state, and the circuit
// breaker's reference-price state reconstructs deterministically as
// Controllers.OnTrade fires in the same sequence it did originally.
// Funding replays because the settlement rate is itself journaled, not
// recomputed. Liquidation and hedge records are not replayed: both depend
// on live mark-price state that was never itself journaled, so a restart
// picks them back up on the next live sweep rather than rederiving history
// — an intentional scope limit, not a bug.
func (ex *Exchange) Recover(ctx context.Context) (uint64, error) {
	ex.replaying = true
	defer func() { ex.replaying = false }()

	var lastSeq uint64
	err := eventjournal.Replay(ex.cfg.EventJournalDir, func(rec eventjournal.Record) error {
		lastSeq = rec.Seq
		switch rec.Kind {
		case eventjournal.KindOrderSubmit:
			var p orderSubmitPayload
			if err := json.Unmarshal(rec.Payload, &p); err != nil {
				return fmt.Errorf("exchange: decode order submit seq %d: %w", rec.Seq, err)
			}
			if _, _, err := ex.SubmitOrder(ctx, p.toRequest()); err != nil {
				log.Printf("[Exchange] replay seq %d order submit: %v", rec.Seq, err)
			}

		case eventjournal.KindOrderCancel:
			var p orderCancelPayload
			if err := json.Unmarshal(rec.Payload, &p); err != nil {
				return fmt.Errorf("exchange: decode order cancel seq %d: %w", rec.Seq, err)
			}
			if _, err := ex.CancelOrder(ctx, p.Symbol, p.ID, p.UserID); err != nil {
				log.Printf("[Exchange] replay seq %d order cancel: %v", rec.Seq, err)
			}

		case eventjournal.KindFunding:
			var p fundingPayload
			if err := json.Unmarshal(rec.Payload, &p); err != nil {
				return fmt.Errorf("exchange: decode funding seq %d: %w", rec.Seq, err)
			}
			if err := ex.processFunding(p.Symbol, p.Rate); err != nil {
				log.Printf("[Exchange] replay seq %d funding: %v", rec.Seq, err)
			}

		case eventjournal.KindTrade, eventjournal.KindLiquidation, eventjournal.KindHedge, eventjournal.KindInsurance, eventjournal.KindPositionChange:
			// Derived output of replaying submits (trades) or dependent on
			// live state not captured in the journal (liquidation, hedge,
			// insurance, position snapshots) — nothing to redo.

		default:
			return fmt.Errorf("exchange: replay seq %d: unknown kind %s", rec.Seq, rec.Kind)
		}
		return nil
	})
	if err != nil {
		return lastSeq, fmt.Errorf("exchange: replay: %w", err)
	}
	return lastSeq, nil
}
