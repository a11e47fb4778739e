// Package exchange is the composition root: it wires the catalog, ledger,
// event journal, matching engine, position manager, and risk controllers
// into one value and exposes the handful of entry points the external
// interface layer calls, replacing the teacher's process-wide singletons
// (GetGlobalMarginService, GetGlobalPriceCache, a package-level database
// pool) with constructor-injected services held on one struct.
package exchange

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"brokerageProject/internal/catalog"
	"brokerageProject/internal/config"
	"brokerageProject/internal/eventjournal"
	"brokerageProject/internal/hedge"
	"brokerageProject/internal/hub"
	"brokerageProject/internal/ledger"
	"brokerageProject/internal/matching"
	"brokerageProject/internal/money"
	"brokerageProject/internal/position"
	"brokerageProject/internal/risk"
)

// Exchange is the single composed value the API layer operates against.
// Every field is an explicit, constructor-injected dependency; nothing here
// is a package-level global.
type Exchange struct {
	Catalog   *catalog.Catalog
	Ledger    *ledger.Journal
	Journal   *eventjournal.Writer
	Matching  *matching.Engine
	Positions *position.Manager
	Risk      *risk.Controllers
	Hedge     *risk.ExposureTracker
	Brokers   *hedge.BrokerPool

	// MarketData receives every trade print from broadcastTrades. Always
	// constructed; the hub keeps no subscriber registry, so its Run loop
	// only drains what is broadcast.
	MarketData *hub.Hub

	// Feed, if set by the caller after New, streams external mark prices
	// into Catalog. Start subscribes it; Stop tears it down.
	Feed catalog.MarkPriceFeed

	// PricePublisher, if set by the caller after New and before Start, fans
	// every applied mark-price tick out to external subscribers (e.g. a
	// Redis pub/sub channel). Optional.
	PricePublisher risk.MarkPricePublisher

	cfg  Config
	cron *cron.Cron

	replaying bool
}

// BrokerSpec names one external hedge counterparty to register with the
// exchange's BrokerPool.
type BrokerSpec struct {
	Name   string
	Broker hedge.Broker
}

// Config bundles everything New needs to stand up an Exchange: the seed
// product catalog, on-disk locations for the two durable logs, and the
// risk/hedge parameters.
type Config struct {
	Products             []catalog.Product
	LedgerDir            string
	LedgerFsync          bool
	EventJournalDir      string
	EventJournalRollover int64
	TradeChanCapacity    int
	InsuranceFundOpening float64

	Limits            position.Limits
	CircuitBreaker    risk.CircuitBreakerConfig
	CircuitBreakerRPS float64
	FXBand            risk.FXBandConfig
	HedgeExposure     risk.ExposureTrackerConfig

	// Brokers, if non-empty, causes New to construct a risk.ExposureTracker
	// wired to a hedge.BrokerPool holding these. PrimaryBroker/FallbackBroker
	// name entries in Brokers. An exchange with no hedgeable products can
	// leave all three empty; Hedge stays nil.
	Brokers        []BrokerSpec
	PrimaryBroker  string
	FallbackBroker string

	FundingInterval      time.Duration
	LiquidationInterval  time.Duration
	MarkToMarketInterval time.Duration

	// FeedSymbols maps an external MarkPriceFeed's own symbol spelling
	// (e.g. Binance's "BTCUSDT") to the catalog symbol it should update
	// ("BTC-PERP"). If left nil, New derives it from each seeded product's
	// ExternalSymbol. Only consulted if Feed is set after New returns.
	FeedSymbols map[string]string
}

// DefaultConfig reads every tunable from internal/config, the environment-
// backed configuration source §6 calls for. Callers override Products (and
// Brokers, to wire real external-broker collaborators) before calling New.
func DefaultConfig() Config {
	return Config{
		LedgerDir:            config.LedgerDir(),
		LedgerFsync:          config.LedgerFsync(),
		EventJournalDir:      config.EventJournalDir(),
		EventJournalRollover: config.EventJournalRolloverBytes(),
		TradeChanCapacity:    config.TradeChanCapacity(),
		InsuranceFundOpening: config.InsuranceFundOpening(),
		Limits:               position.DefaultLimits(),
		CircuitBreaker: risk.CircuitBreakerConfig{
			Level1:          config.CircuitBreakerLevel1(),
			Level2:          config.CircuitBreakerLevel2(),
			Level3:          config.CircuitBreakerLevel3(),
			HaltDuration:    time.Duration(config.HaltDuration()) * time.Second,
			RefreshInterval: time.Duration(config.ReferencePriceRefreshInterval()) * time.Second,
		},
		CircuitBreakerRPS: config.LimitStateThrottleRPS(),
		FXBand: risk.FXBandConfig{
			BandPercent: config.FXBandPercent(),
			MinSpread:   config.FXMinSpread(),
			MinDepth:    config.FXMinDepth(),
		},
		HedgeExposure: risk.ExposureTrackerConfig{
			ThresholdQuote: config.HedgeThresholdQuote(),
			SweepInterval:  time.Duration(config.HedgeSweepIntervalSeconds()) * time.Second,
			MaxRetries:     config.HedgeMaxRetries(),
		},
		FundingInterval:      time.Duration(config.FundingIntervalSeconds()) * time.Second,
		LiquidationInterval:  time.Duration(config.LiquidationSweepIntervalSeconds()) * time.Second,
		MarkToMarketInterval: time.Duration(config.MarkToMarketIntervalSeconds()) * time.Second,
	}
}

// New wires every collaborator in dependency order and returns a ready-to-
// Start Exchange. The construction order mirrors §9's Design Notes: catalog
// first (every other service reads it), the two durable logs next, then the
// position manager (needs the ledger), then the risk controllers (the last
// of which, the circuit breaker and FX band, need the catalog only; the
// exposure tracker additionally needs the position manager and, if
// hedgeable products are configured, a broker pool), and finally the
// matching engine, which closes the cycle by being handed back to the FX
// band controller as its book-depth source.
func New(cfg Config) (*Exchange, error) {
	cat := catalog.New()
	cat.Seed(cfg.Products)

	book, err := ledger.Open(cfg.LedgerDir, cfg.LedgerFsync)
	if err != nil {
		return nil, fmt.Errorf("exchange: open ledger: %w", err)
	}

	journal, err := eventjournal.NewWriter(cfg.EventJournalDir, cfg.EventJournalRollover, func() int64 { return time.Now().UnixNano() })
	if err != nil {
		return nil, fmt.Errorf("exchange: open event journal: %w", err)
	}

	positions := position.New(cat, book, cfg.Limits, money.MustFromFloat(cfg.InsuranceFundOpening))

	breaker := risk.NewCircuitBreaker(cat, cfg.CircuitBreaker, cfg.CircuitBreakerRPS)
	fxBand := risk.NewFXBandController(cat, cfg.FXBand)

	var tracker *risk.ExposureTracker
	var pool *hedge.BrokerPool
	if len(cfg.Brokers) > 0 {
		pool = hedge.NewBrokerPool()
		for _, spec := range cfg.Brokers {
			pool.RegisterBroker(spec.Name, spec.Broker)
		}
		if cfg.PrimaryBroker != "" {
			if err := pool.SetPrimary(cfg.PrimaryBroker); err != nil {
				return nil, fmt.Errorf("exchange: set primary broker: %w", err)
			}
		}
		if cfg.FallbackBroker != "" {
			if err := pool.SetFallback(cfg.FallbackBroker); err != nil {
				return nil, fmt.Errorf("exchange: set fallback broker: %w", err)
			}
		}
		tracker = risk.NewExposureTracker(positions, cat, pool, journal, cfg.HedgeExposure)
	}

	controllers := risk.NewControllers(cat, breaker, fxBand, positions, tracker)

	engine := matching.New(cat, controllers, positions, cfg.TradeChanCapacity)
	fxBand.SetDepthProvider(engine)

	if cfg.FeedSymbols == nil {
		cfg.FeedSymbols = make(map[string]string)
		for _, p := range cfg.Products {
			if p.Hedgeable() {
				cfg.FeedSymbols[p.ExternalSymbol] = p.Symbol
			}
		}
	}

	return &Exchange{
		Catalog:    cat,
		Ledger:     book,
		Journal:    journal,
		Matching:   engine,
		Positions:  positions,
		Risk:       controllers,
		Hedge:      tracker,
		Brokers:    pool,
		MarketData: hub.NewHub(),
		cfg:        cfg,
		cron:       cron.New(),
	}, nil
}

// Start starts the risk controllers' background loops and schedules the
// exchange's own periodic sweeps: funding settlement, liquidation, and
// mark-to-market P&L refresh.
func (ex *Exchange) Start(ctx context.Context) error {
	if err := ex.Risk.Start(ctx); err != nil {
		return fmt.Errorf("exchange: start risk controllers: %w", err)
	}

	if _, err := ex.cron.AddFunc(fmt.Sprintf("@every %ds", int(ex.cfg.FundingInterval.Seconds())), ex.sweepFunding); err != nil {
		return fmt.Errorf("exchange: schedule funding sweep: %w", err)
	}

	if _, err := ex.cron.AddFunc(fmt.Sprintf("@every %ds", int(ex.cfg.LiquidationInterval.Seconds())), ex.sweepLiquidations); err != nil {
		return fmt.Errorf("exchange: schedule liquidation sweep: %w", err)
	}

	if _, err := ex.cron.AddFunc(fmt.Sprintf("@every %ds", int(ex.cfg.MarkToMarketInterval.Seconds())), func() {
		ex.Positions.UpdateAllPnL()
	}); err != nil {
		return fmt.Errorf("exchange: schedule mark-to-market sweep: %w", err)
	}

	ex.cron.Start()

	go ex.MarketData.Run()
	go ex.broadcastTrades()

	if ex.Feed != nil {
		dispatcher := risk.NewPriceDispatcher(ex.Catalog, ex.Matching, ex.Positions, ex.cfg.FeedSymbols)
		if ex.PricePublisher != nil {
			dispatcher.SetPublisher(ex.PricePublisher)
		}
		symbols := make([]string, 0, len(ex.cfg.FeedSymbols))
		for s := range ex.cfg.FeedSymbols {
			symbols = append(symbols, s)
		}
		if err := ex.Feed.Subscribe(symbols, dispatcher.OnTick); err != nil {
			return fmt.Errorf("exchange: subscribe mark price feed: %w", err)
		}
	}

	log.Printf("[Exchange] started: funding every %s, liquidation every %s, mark-to-market every %s",
		ex.cfg.FundingInterval, ex.cfg.LiquidationInterval, ex.cfg.MarkToMarketInterval)
	return nil
}

// broadcastTrades drains the matching engine's Trades channel for the
// lifetime of the process, handing each print to MarketData.
func (ex *Exchange) broadcastTrades() {
	for t := range ex.Matching.Trades {
		ex.MarketData.BroadcastTrade(t)
	}
}

// Stop halts every background loop and closes the two durable logs.
func (ex *Exchange) Stop(ctx context.Context) {
	stopCtx := ex.cron.Stop()
	<-stopCtx.Done()
	if ex.Feed != nil {
		ex.Feed.Stop()
	}
	ex.Risk.Stop(ctx)
	ex.Journal.Close()
	ex.Ledger.Close()
	log.Printf("[Exchange] stopped")
}
