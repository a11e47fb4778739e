package config

// Risk and margin parameters, sourced from github.com/spf13/viper (env vars,
// an optional CONFIG_FILE, then the documented default) with the documented
// defaults §6 calls for ("All risk parameters ... are supplied via a
// configuration source with enumerated names; each key has a documented
// effect and a default"), mirroring the original exchange_config.h's
// env-with-fallback accessors (max_position_size(), max_notional_per_user(),
// max_open_positions(), max_funding_rate()). github.com/joho/godotenv
// populates the process environment from a .env file before these are read;
// see cmd/server/main.go.

// MaxPositionPerUser caps |size| a single user may hold on one symbol.
func MaxPositionPerUser() float64 { return envFloat("MAX_POSITION_SIZE", 100.0) }

// MaxNotionalPerUser caps a user's total notional exposure across symbols.
func MaxNotionalPerUser() float64 { return envFloat("MAX_NOTIONAL_PER_USER", 1_000_000.0) }

// MaxOpenPositions caps the number of distinct (user, symbol) positions a
// user may hold concurrently.
func MaxOpenPositions() int { return envInt("MAX_OPEN_POSITIONS", 20) }

// MaxOpenInterestPerProduct caps Σ|size| across all users on one symbol.
func MaxOpenInterestPerProduct() float64 { return envFloat("MAX_OPEN_INTEREST_PER_PRODUCT", 10_000.0) }

// MaxFundingRate is the absolute clamp applied to the dynamic funding rate.
func MaxFundingRate() float64 { return envFloat("MAX_FUNDING_RATE", 0.0075) }

// FundingDampening scales premium into a funding rate before clamping.
func FundingDampening() float64 { return envFloat("FUNDING_DAMPENING", 0.10) }

// InsuranceContributionRate is the fraction of every taker fee routed to the
// insurance fund at trade time (§4.2, default 20%).
func InsuranceContributionRate() float64 { return envFloat("INSURANCE_CONTRIBUTION_RATE", 0.20) }

// HedgeThresholdQuote is the unhedged-exposure-in-quote-currency trigger
// level for the hedge exposure tracker (§4.4.2).
func HedgeThresholdQuote() float64 { return envFloat("HEDGE_THRESHOLD_QUOTE", 5_000.0) }

// FatFingerThreshold is the configured maximum fraction by which an order's
// price may deviate from the last traded price (§6). No order check in this
// repository reads it, so orders are not rejected on this basis.
func FatFingerThreshold() float64 { return envFloat("FAT_FINGER_THRESHOLD", 0.20) }

// CircuitBreakerLevel1 is the first price-band percentage around the
// reference price; a trade attempting to cross it enters LIMIT_UP/DOWN
// (§4.4.1).
func CircuitBreakerLevel1() float64 { return envFloat("CIRCUIT_BREAKER_LEVEL1", 0.05) }

// CircuitBreakerLevel2 is the second, wider price-band percentage.
func CircuitBreakerLevel2() float64 { return envFloat("CIRCUIT_BREAKER_LEVEL2", 0.10) }

// CircuitBreakerLevel3 is the outermost price-band percentage; crossing it
// halts the symbol entirely for HaltDuration.
func CircuitBreakerLevel3() float64 { return envFloat("CIRCUIT_BREAKER_LEVEL3", 0.15) }

// HaltDuration is how long a symbol stays HALTED once level3 is crossed.
func HaltDuration() int { return envInt("HALT_DURATION_SECONDS", 300) }

// ReferencePriceRefreshInterval is the cron cadence, in seconds, on which
// each circuit breaker's reference price is refreshed from the last trade.
func ReferencePriceRefreshInterval() int { return envInt("REFERENCE_PRICE_REFRESH_SECONDS", 30) }

// LimitStateThrottleRPS bounds the opposite-side order rate admitted through
// a symbol while it sits in LIMIT_UP or LIMIT_DOWN (§4.4.1).
func LimitStateThrottleRPS() float64 { return envFloat("LIMIT_STATE_THROTTLE_RPS", 10.0) }

// HedgeSweepIntervalSeconds is the cadence of the periodic reconciliation
// sweep that re-checks every symbol's unhedged exposure (§4.4.2 default 60s).
func HedgeSweepIntervalSeconds() int { return envInt("HEDGE_SWEEP_INTERVAL_SECONDS", 60) }

// HedgeMaxRetries bounds the exponential back-off retry count before a failed
// hedge submission is alerted as persistently failing.
func HedgeMaxRetries() int { return envInt("HEDGE_MAX_RETRIES", 5) }

// FXBandPercent is the price-band percentage around the reference rate for
// non-crypto quote-currency products (§4.4.3).
func FXBandPercent() float64 { return envFloat("FX_BAND_PERCENT", 0.02) }

// FXMinSpread is the minimum bid/ask spread, as a fraction of mid price,
// enforced by the FX band controller.
func FXMinSpread() float64 { return envFloat("FX_MIN_SPREAD", 0.001) }

// FXMinDepth is the minimum resting bid/ask size, in base units, required at
// the best price level for the FX band controller to admit an order.
func FXMinDepth() float64 { return envFloat("FX_MIN_DEPTH", 1000.0) }
