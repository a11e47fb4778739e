package risk

import (
	"context"
	"sync"
	"testing"
	"time"

	"brokerageProject/internal/eventjournal"
	"brokerageProject/internal/hedge"
	"brokerageProject/internal/position"
)

type fakePositions struct {
	mu       sync.Mutex
	exposure position.ExchangeExposure
}

func (f *fakePositions) GetExposure(symbol string) position.ExchangeExposure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exposure
}

func (f *fakePositions) GetAllExposures() []position.ExchangeExposure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []position.ExchangeExposure{f.exposure}
}

func (f *fakePositions) UpdateHedgePosition(symbol string, hedgeSize float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exposure.HedgePosition = hedgeSize
}

type fakeSubmitter struct {
	ack *hedge.HedgeAck
	err error
}

func (f *fakeSubmitter) SubmitWithFailover(ctx context.Context, o *hedge.HedgeOrder) (*hedge.HedgeAck, string, error) {
	return f.ack, "mock", f.err
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []eventjournal.Kind
}

func (f *fakeJournal) Append(kind eventjournal.Kind, payload []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, kind)
	return uint64(len(f.entries)), nil
}

func TestCheckAndHedgeSubmitsWhenOverThreshold(t *testing.T) {
	cat := newFakeCatalog(btcPerp(100))
	positions := &fakePositions{exposure: position.ExchangeExposure{Symbol: "BTC-PERP", NetPosition: 10, MarkPrice: btcPerp(100).MarkPrice}}
	sub := &fakeSubmitter{ack: &hedge.HedgeAck{Status: "filled"}}

	tracker := NewExposureTracker(positions, cat, sub, nil, ExposureTrackerConfig{ThresholdQuote: 500, MaxRetries: 1})
	tracker.checkAndHedge(context.Background(), "BTC-PERP")

	if got := positions.GetExposure("BTC-PERP").HedgePosition; got != -10 {
		t.Fatalf("hedge position = %v, want -10 (sell to offset net long)", got)
	}
}

func TestCheckAndHedgeSkipsUnderThreshold(t *testing.T) {
	cat := newFakeCatalog(btcPerp(100))
	positions := &fakePositions{exposure: position.ExchangeExposure{Symbol: "BTC-PERP", NetPosition: 1, MarkPrice: btcPerp(100).MarkPrice}}
	sub := &fakeSubmitter{ack: &hedge.HedgeAck{Status: "filled"}}

	tracker := NewExposureTracker(positions, cat, sub, nil, ExposureTrackerConfig{ThresholdQuote: 500, MaxRetries: 1})
	tracker.checkAndHedge(context.Background(), "BTC-PERP")

	if got := positions.GetExposure("BTC-PERP").HedgePosition; got != 0 {
		t.Fatalf("hedge position = %v, want 0 (below threshold, no hedge submitted)", got)
	}
}

func TestPersistentHedgeFailureAlertsJournal(t *testing.T) {
	cat := newFakeCatalog(btcPerp(100))
	positions := &fakePositions{exposure: position.ExchangeExposure{Symbol: "BTC-PERP", NetPosition: 10, MarkPrice: btcPerp(100).MarkPrice}}
	sub := &fakeSubmitter{err: hedge.ErrConnectionFailed}
	journal := &fakeJournal{}

	tracker := NewExposureTracker(positions, cat, sub, journal, ExposureTrackerConfig{ThresholdQuote: 500, MaxRetries: 2})
	done := make(chan struct{})
	go func() {
		tracker.checkAndHedge(context.Background(), "BTC-PERP")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("checkAndHedge did not return in time")
	}

	journal.mu.Lock()
	defer journal.mu.Unlock()
	if len(journal.entries) != 1 || journal.entries[0] != eventjournal.KindHedge {
		t.Fatalf("journal entries = %v, want one KindHedge alert", journal.entries)
	}
}
