package risk

import (
	"fmt"

	"brokerageProject/internal/book"
)

// DepthProvider is the narrow read-only book accessor the FX band
// controller needs to check resting liquidity, grounded on
// matching.Engine.Depth. Set via FXBandController.SetDepthProvider once the
// matching engine exists, breaking the natural construction-order cycle
// (the engine needs a RiskGate before it can be built).
type DepthProvider interface {
	Depth(symbol string, levels int) (bids, asks []book.DepthLevel)
}

// FXBandConfig holds the §4.4.3 band, spread, and depth parameters applied
// uniformly to every product whose quote currency is not USD, USDT or USDC.
type FXBandConfig struct {
	BandPercent float64
	MinSpread   float64
	MinDepth    float64
}

// RejectReason classifies why the FX band controller refused an order.
type RejectReason string

const (
	RejectOutsideBand       RejectReason = "OUTSIDE_BAND"
	RejectSpreadTooTight    RejectReason = "SPREAD_TOO_TIGHT"
	RejectInsufficientDepth RejectReason = "INSUFFICIENT_DEPTH"
)

// BandRejection is the classified error FXBandController returns, so
// callers can surface Reason distinctly from a generic risk rejection.
type BandRejection struct {
	Symbol string
	Reason RejectReason
	Detail string
}

func (e *BandRejection) Error() string {
	return fmt.Sprintf("risk: %s rejected (%s): %s", e.Symbol, e.Reason, e.Detail)
}

// FXBandController is the "USD-MNT Controller" of §4.4.3 generalized to
// every product whose quote currency is not USD or a USD stablecoin: a price
// band around an authoritative reference, a minimum spread, and a minimum
// resting depth, grounded on internal/api/fx_rates_handler.go plus
// exchange_rate_service.go's reference-rate-plus-band pairing, adapted from
// an HTTP handler into a pure gate called before Submit admits an order.
type FXBandController struct {
	cat   Catalog
	cfg   FXBandConfig
	depth DepthProvider
}

// NewFXBandController constructs a controller over cat's products using cfg.
func NewFXBandController(cat Catalog, cfg FXBandConfig) *FXBandController {
	return &FXBandController{cat: cat, cfg: cfg}
}

// SetDepthProvider wires the matching engine's book depth once constructed.
func (f *FXBandController) SetDepthProvider(dp DepthProvider) { f.depth = dp }

// appliesTo reports whether a product with the given quote currency is
// subject to the FX band gate: every quote currency except USD, the USDT and
// USDC stablecoins, and an empty one.
func appliesTo(quoteCurrency string) bool {
	switch quoteCurrency {
	case "", "USDT", "USDC", "USD":
		return false
	default:
		return true
	}
}

// CheckOrder enforces the band, spread, and depth rules for o's symbol,
// returning a *BandRejection when the product is an FX instrument outside
// tolerance. Products whose quote currency isn't subject to the gate pass
// through with a nil error.
func (f *FXBandController) CheckOrder(o *book.Order) error {
	product, ok := f.cat.Get(o.Symbol)
	if !ok || !appliesTo(product.QuoteCurrency) {
		return nil
	}
	reference := product.MarkPrice
	if reference.IsZero() {
		return nil
	}

	if o.Type != book.Market {
		deviation := o.Price.ToFloat()/reference.ToFloat() - 1.0
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > f.cfg.BandPercent {
			return &BandRejection{
				Symbol: o.Symbol,
				Reason: RejectOutsideBand,
				Detail: fmt.Sprintf("price %s deviates %.4f from reference %s, band is %.4f", o.Price, deviation, reference, f.cfg.BandPercent),
			}
		}
	}

	if f.depth == nil {
		return nil
	}
	bids, asks := f.depth.Depth(o.Symbol, 1)
	if len(bids) == 0 || len(asks) == 0 {
		return nil // nothing resting yet to check spread/depth against
	}
	bestBid, bestAsk := bids[0], asks[0]
	mid := (bestBid.Price.ToFloat() + bestAsk.Price.ToFloat()) / 2
	spread := (bestAsk.Price.ToFloat() - bestBid.Price.ToFloat()) / mid
	if spread < f.cfg.MinSpread {
		return &BandRejection{
			Symbol: o.Symbol,
			Reason: RejectSpreadTooTight,
			Detail: fmt.Sprintf("spread %.6f below minimum %.6f", spread, f.cfg.MinSpread),
		}
	}

	side := bestBid
	if o.Side == book.Sell {
		side = bestAsk
	}
	if side.Qty < f.cfg.MinDepth {
		return &BandRejection{
			Symbol: o.Symbol,
			Reason: RejectInsufficientDepth,
			Detail: fmt.Sprintf("resting depth %.4f below minimum %.4f", side.Qty, f.cfg.MinDepth),
		}
	}
	return nil
}
