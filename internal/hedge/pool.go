package hedge

import (
	"context"
	"log"
	"sync"
	"time"
)

// pendingHedge is a submitted-but-not-yet-confirmed-filled hedge order,
// tracked so the reconciliation sweep can poll it.
type pendingHedge struct {
	brokerName    string
	brokerOrderID string
	submittedAt   time.Time
}

// BrokerPool manages registered brokers and routes hedge submissions to a
// primary with fallback, grounded directly on internal/lp.ProviderManager.
type BrokerPool struct {
	mu       sync.Mutex
	brokers  map[string]Broker
	primary  string
	fallback string
	pending  map[string]pendingHedge // keyed by ClientID
}

// NewBrokerPool returns an empty pool; register brokers with RegisterBroker.
func NewBrokerPool() *BrokerPool {
	return &BrokerPool{
		brokers: make(map[string]Broker),
		pending: make(map[string]pendingHedge),
	}
}

// RegisterBroker adds broker under name.
func (p *BrokerPool) RegisterBroker(name string, broker Broker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.brokers[name] = broker
}

// SetPrimary designates the broker hedges are attempted against first.
func (p *BrokerPool) SetPrimary(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.brokers[name]; !ok {
		return ErrBrokerNotFound
	}
	p.primary = name
	return nil
}

// SetFallback designates the broker tried when the primary fails.
func (p *BrokerPool) SetFallback(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.brokers[name]; !ok {
		return ErrBrokerNotFound
	}
	p.fallback = name
	return nil
}

// GetBroker retrieves a registered broker by name.
func (p *BrokerPool) GetBroker(name string) (Broker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.brokers[name]
	if !ok {
		return nil, ErrBrokerNotFound
	}
	return b, nil
}

// ListBrokers returns every registered broker's name.
func (p *BrokerPool) ListBrokers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.brokers))
	for name := range p.brokers {
		names = append(names, name)
	}
	return names
}

// SubmitWithFailover attempts o against the primary broker, falling back to
// the fallback broker if registered and the primary fails. The name of
// whichever broker ultimately handled the order is returned. A successful
// submission is recorded as pending for the reconciliation sweep.
func (p *BrokerPool) SubmitWithFailover(ctx context.Context, o *HedgeOrder) (*HedgeAck, string, error) {
	p.mu.Lock()
	primaryName := p.primary
	fallbackName := p.fallback
	primary, ok := p.brokers[primaryName]
	p.mu.Unlock()
	if !ok {
		return nil, "", ErrNoPrimaryBroker
	}

	ack, err := primary.SubmitHedge(ctx, o)
	if err == nil {
		p.recordPending(o.ClientID, primaryName, ack)
		return ack, primaryName, nil
	}

	p.mu.Lock()
	fallback, fbOK := p.brokers[fallbackName]
	p.mu.Unlock()
	if !fbOK {
		return nil, primaryName, err
	}

	fbAck, fbErr := fallback.SubmitHedge(ctx, o)
	if fbErr != nil {
		return nil, fallbackName, CombineErrors(err, fbErr)
	}
	p.recordPending(o.ClientID, fallbackName, fbAck)
	return fbAck, fallbackName, nil
}

func (p *BrokerPool) recordPending(clientID, brokerName string, ack *HedgeAck) {
	if ack == nil || ack.Status == "filled" {
		return
	}
	p.mu.Lock()
	p.pending[clientID] = pendingHedge{brokerName: brokerName, brokerOrderID: ack.BrokerOrderID, submittedAt: time.Now()}
	p.mu.Unlock()
}

// Reconcile polls every still-pending hedge's status and drops it from the
// pending set once the broker reports it filled or rejected. No component
// in this repository schedules it; it runs only when a caller invokes it.
func (p *BrokerPool) Reconcile(ctx context.Context) {
	p.mu.Lock()
	snapshot := make(map[string]pendingHedge, len(p.pending))
	for k, v := range p.pending {
		snapshot[k] = v
	}
	p.mu.Unlock()

	for clientID, ph := range snapshot {
		broker, err := p.GetBroker(ph.brokerName)
		if err != nil {
			continue
		}
		ack, err := broker.OrderStatus(ctx, ph.brokerOrderID)
		if err != nil {
			log.Printf("[BrokerPool] reconcile %s: status check failed: %v", clientID, err)
			continue
		}
		if ack.Status == "filled" || ack.Status == "rejected" {
			p.mu.Lock()
			delete(p.pending, clientID)
			p.mu.Unlock()
		}
	}
}

// PendingCount returns the number of hedges awaiting confirmation.
func (p *BrokerPool) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
