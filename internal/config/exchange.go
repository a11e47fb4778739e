package config

// Composition-root parameters for internal/exchange: where the durable
// ledger and event journal live on disk, and the matching engine's trade
// fan-out capacity.

// LedgerDir is the directory ledger.Open roots its per-category files in.
func LedgerDir() string { return envString("LEDGER_DIR", "data/ledger") }

// EventJournalDir is the directory eventjournal.NewWriter roots its
// sequence-numbered segment files in.
func EventJournalDir() string { return envString("EVENT_JOURNAL_DIR", "data/eventjournal") }

// EventJournalRolloverBytes is the size at which the event journal writer
// rolls over to a new segment file.
func EventJournalRolloverBytes() int64 {
	return int64(envFloat("EVENT_JOURNAL_ROLLOVER_BYTES", 64*1024*1024))
}

// LedgerFsync controls whether every ledger append blocks on fsync before
// returning (§4.5 "fsync on transaction boundaries is configurable").
func LedgerFsync() bool { return envString("LEDGER_FSYNC", "false") == "true" }

// TradeChanCapacity bounds the matching engine's Trades channel, which the
// exchange drains into the market-data hub.
func TradeChanCapacity() int { return envInt("TRADE_CHAN_CAPACITY", 4096) }

// InsuranceFundOpening is the opening balance credited to the insurance
// fund at startup (§4.2).
func InsuranceFundOpening() float64 { return envFloat("INSURANCE_FUND_OPENING", 0.0) }

// FundingIntervalSeconds is the cadence of the funding settlement sweep,
// the original's 8-hour period expressed as a configurable cron interval.
func FundingIntervalSeconds() int { return envInt("FUNDING_INTERVAL_SECONDS", 8*60*60) }

// LiquidationSweepIntervalSeconds is the cadence of the maintenance-margin
// liquidation sweep (§4.2).
func LiquidationSweepIntervalSeconds() int { return envInt("LIQUIDATION_SWEEP_INTERVAL_SECONDS", 5) }

// MarkToMarketIntervalSeconds is the cadence of the unrealized P&L refresh
// against the catalog's current mark price.
func MarkToMarketIntervalSeconds() int { return envInt("MARK_TO_MARKET_INTERVAL_SECONDS", 2) }

// Port is the HTTP listen port for cmd/server.
func Port() string { return envString("PORT", "8080") }

// DatabaseURL is the Postgres connection string the ledger's durability
// mirror and the migration runner both read.
func DatabaseURL() string { return envString("DATABASE_URL", "") }

// BinanceStreamURL is the combined-stream websocket endpoint the mark-price
// feed subscribes to.
func BinanceStreamURL() string {
	return envString("BINANCE_STREAM_URL", "wss://stream.binance.com:9443/stream")
}

// FeedEnabled controls whether cmd/server wires the binance.Client mark
// price feed into the exchange at startup.
func FeedEnabled() bool { return envString("FEED_ENABLED", "true") == "true" }

// RedisAddr is the Redis host:port the mark-price/circuit-breaker pub/sub
// publisher connects to. Empty disables the publisher entirely.
func RedisAddr() string { return envString("REDIS_ADDR", "") }

// RedisPassword authenticates against RedisAddr, if set.
func RedisPassword() string { return envString("REDIS_PASSWORD", "") }

// RedisDB selects the logical Redis database for the pub/sub publisher.
func RedisDB() int { return envInt("REDIS_DB", 0) }
