package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"brokerageProject/internal/eventjournal"
	"brokerageProject/internal/hedge"
	"brokerageProject/internal/position"
)

// PositionSource is the subset of position.Manager the exposure tracker
// reads and writes: aggregate client exposure in, hedge fills back out.
type PositionSource interface {
	GetExposure(symbol string) position.ExchangeExposure
	GetAllExposures() []position.ExchangeExposure
	UpdateHedgePosition(symbol string, hedgeSize float64)
}

// HedgeSubmitter is the narrow broker-routing collaborator the tracker
// needs: hedge.BrokerPool's primary-then-fallback submission.
type HedgeSubmitter interface {
	SubmitWithFailover(ctx context.Context, o *hedge.HedgeOrder) (*hedge.HedgeAck, string, error)
}

// JournalWriter is the narrow event-journal collaborator used to alert on
// persistent hedge failure.
type JournalWriter interface {
	Append(kind eventjournal.Kind, payload []byte) (uint64, error)
}

// ExposureTrackerConfig holds the §4.4.2 threshold, sweep cadence, and
// retry bound.
type ExposureTrackerConfig struct {
	ThresholdQuote float64
	SweepInterval  time.Duration
	MaxRetries     int
}

type hedgeAlertPayload struct {
	Symbol    string    `json:"symbol"`
	Unhedged  float64   `json:"unhedged"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ExposureTracker is the hedge exposure tracker of §4.4.2: it holds no
// exposure state of its own, delegating NetPosition/HedgePosition
// bookkeeping to position.Manager's exposure.go methods, and decides only
// when and how much to hedge. Grounded on internal/binance/provider.go's
// streamTrades bounded-backoff reconnect loop for the retry schedule and
// data_integrity_service.go's cron-driven periodic sweep shape.
type ExposureTracker struct {
	positions PositionSource
	cat       Catalog
	broker    HedgeSubmitter
	journal   JournalWriter
	cfg       ExposureTrackerConfig

	cron *cron.Cron
}

// NewExposureTracker constructs a tracker. journal may be nil, in which
// case persistent hedge failures are only logged.
func NewExposureTracker(positions PositionSource, cat Catalog, broker HedgeSubmitter, journal JournalWriter, cfg ExposureTrackerConfig) *ExposureTracker {
	return &ExposureTracker{
		positions: positions,
		cat:       cat,
		broker:    broker,
		journal:   journal,
		cfg:       cfg,
		cron:      cron.New(),
	}
}

// Start schedules the periodic reconciliation sweep and runs one pass now.
func (t *ExposureTracker) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %ds", int(t.cfg.SweepInterval.Seconds()))
	if _, err := t.cron.AddFunc(spec, func() { t.SweepAll(ctx) }); err != nil {
		return fmt.Errorf("risk: schedule hedge sweep: %w", err)
	}
	go t.SweepAll(ctx)
	t.cron.Start()
	log.Printf("[ExposureTracker] started, sweep interval %s, threshold %.2f quote", t.cfg.SweepInterval, t.cfg.ThresholdQuote)
	return nil
}

// Stop halts the sweep scheduler and waits for any in-flight run.
func (t *ExposureTracker) Stop(ctx context.Context) {
	stopCtx := t.cron.Stop()
	<-stopCtx.Done()
	log.Printf("[ExposureTracker] stopped")
}

// OnTrade is called by Controllers after a trade on a hedgeable product;
// it does not block the matching engine, it dispatches the hedge check on
// its own goroutine per §4.4.2's "does not wait for broker acknowledgement
// before releasing the matching engine".
func (t *ExposureTracker) OnTrade(ctx context.Context, symbol string) {
	product, ok := t.cat.Get(symbol)
	if !ok || !product.Hedgeable() {
		return
	}
	go t.checkAndHedge(ctx, symbol)
}

// SweepAll re-checks every hedgeable product's exposure against the
// threshold rule, independent of trade flow.
func (t *ExposureTracker) SweepAll(ctx context.Context) {
	for _, p := range t.cat.All() {
		if !p.Hedgeable() {
			continue
		}
		t.checkAndHedge(ctx, p.Symbol)
	}
}

func (t *ExposureTracker) checkAndHedge(ctx context.Context, symbol string) {
	product, ok := t.cat.Get(symbol)
	if !ok || !product.Hedgeable() {
		return
	}
	exposure := t.positions.GetExposure(symbol)
	quote := exposure.ExposureQuote()
	if quote <= t.cfg.ThresholdQuote {
		return
	}

	unhedged := exposure.Unhedged()
	direction := hedge.DirectionSell
	if unhedged < 0 {
		direction = hedge.DirectionBuy
	}
	qty := unhedged
	if qty < 0 {
		qty = -qty
	}

	order := &hedge.HedgeOrder{
		Symbol:         symbol,
		ExternalSymbol: product.ExternalSymbol,
		Direction:      direction,
		Quantity:       decimal.NewFromFloat(qty),
		ClientID:       fmt.Sprintf("%s-%d", symbol, time.Now().UnixNano()),
	}
	t.submitWithRetry(ctx, order, qty, direction)
}

// submitWithRetry attempts order with a doubling back-off capped at 60s,
// mirroring internal/binance/provider.go's reconnect loop. On success it
// folds the fill into position.Manager via UpdateHedgePosition; on
// exhausting cfg.MaxRetries it alerts the event journal.
func (t *ExposureTracker) submitWithRetry(ctx context.Context, order *hedge.HedgeOrder, qty float64, direction hedge.Direction) {
	backoff := 1 * time.Second
	const maxBackoff = 60 * time.Second

	var lastErr error
	attempts := 0
	maxRetries := t.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	for attempts < maxRetries {
		attempts++
		ack, brokerName, err := t.broker.SubmitWithFailover(ctx, order)
		if err == nil && ack != nil && ack.Status != "rejected" {
			delta := qty
			if direction == hedge.DirectionSell {
				delta = -delta
			}
			current := t.positions.GetExposure(order.Symbol).HedgePosition
			t.positions.UpdateHedgePosition(order.Symbol, current+delta)
			log.Printf("[ExposureTracker] hedged %s %.6f %s via %s (attempt %d)", order.Symbol, qty, direction, brokerName, attempts)
			return
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("hedge rejected: %s", ack.ErrorMessage)
		}
		log.Printf("[ExposureTracker] hedge attempt %d for %s failed: %v", attempts, order.Symbol, lastErr)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	t.alertPersistentFailure(order.Symbol, qty, attempts, lastErr)
}

func (t *ExposureTracker) alertPersistentFailure(symbol string, unhedged float64, attempts int, lastErr error) {
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	log.Printf("[ExposureTracker] ALERT: %s hedge failed persistently after %d attempts: %s", symbol, attempts, msg)
	if t.journal == nil {
		return
	}
	payload, err := json.Marshal(hedgeAlertPayload{
		Symbol:    symbol,
		Unhedged:  unhedged,
		Attempts:  attempts,
		LastError: msg,
		Status:    "pending",
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("[ExposureTracker] failed to marshal hedge alert payload: %v", err)
		return
	}
	if _, err := t.journal.Append(eventjournal.KindHedge, payload); err != nil {
		log.Printf("[ExposureTracker] failed to append hedge alert to journal: %v", err)
	}
}
