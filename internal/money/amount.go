// Package money implements the fixed-point numerics used everywhere a
// balance, price, or margin requirement crosses a ledger or account boundary.
// Amounts are held in integer micro-units; floats appear at the edges where
// an external feed or API hands us a double, and in the quantity and rate
// scaling done by MulQty, DivQty and Rate.
package money

import (
	"fmt"
	"math"
)

// Scale is the number of micro-units per whole unit (1 unit = 1,000,000
// micro-units), matching the original accounting engine's MICROMNT_SCALE.
const Scale = 1_000_000

// Amount is a quantity of money (or price) in micro-units. Zero value is
// zero. Add, Sub, Neg, Abs and Cmp are exact integer arithmetic; MulQty,
// DivQty and Rate compute through float64 and round back to micro-units.
type Amount int64

// Zero is the additive identity.
const Zero Amount = 0

// FromFloat converts a float64 unit amount into micro-units, rounding
// half-away-from-zero at the boundary. It rejects NaN and Inf, since those
// can never represent a real balance or price.
func FromFloat(d float64) (Amount, error) {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("money: non-finite float %v cannot convert to Amount", d)
	}
	scaled := d * Scale
	if scaled > 0 {
		scaled += 0.5
	} else if scaled < 0 {
		scaled -= 0.5
	}
	if scaled > math.MaxInt64 || scaled < math.MinInt64 {
		return 0, fmt.Errorf("money: float %v out of Amount range", d)
	}
	return Amount(int64(scaled)), nil
}

// MustFromFloat is FromFloat for call sites that already know the float is
// finite and in range (e.g. a constant in a test or a config default).
func MustFromFloat(d float64) Amount {
	a, err := FromFloat(d)
	if err != nil {
		panic(err)
	}
	return a
}

// ToFloat converts back to a float64 unit amount. This is lossy in the
// general case and must only be used for display, logging, or handing a
// value to an external API — never for further internal arithmetic.
func (a Amount) ToFloat() float64 {
	return float64(a) / Scale
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// Neg returns -a.
func (a Amount) Neg() Amount { return -a }

// Abs returns the absolute value of a.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether a is exactly zero.
func (a Amount) IsZero() bool { return a == 0 }

// Sign returns -1, 0, or 1 depending on the sign of a.
func (a Amount) Sign() int { return a.Cmp(0) }

// MulQty multiplies a price Amount by a float64 quantity, rounding
// half-away-from-zero. Used for notional = price * qty and similar
// mixed fixed-point/float computations at the matching/position boundary.
func (a Amount) MulQty(qty float64) Amount {
	product := float64(a) * qty
	if product > 0 {
		product += 0.5
	} else if product < 0 {
		product -= 0.5
	}
	return Amount(int64(product))
}

// DivQty divides a by a float64 quantity, rounding half-away-from-zero.
// Callers must check qty != 0 before calling.
func (a Amount) DivQty(qty float64) Amount {
	quotient := float64(a) / qty
	if quotient > 0 {
		quotient += 0.5
	} else if quotient < 0 {
		quotient -= 0.5
	}
	return Amount(int64(quotient))
}

// Rate multiplies an Amount by a dimensionless rate (e.g. a margin
// requirement percentage, a fee rate, or a funding rate) expressed as a
// float64, rounding half-away-from-zero.
func (a Amount) Rate(rate float64) Amount {
	return a.MulQty(rate)
}

// String renders the amount as a fixed-point decimal string for logs.
func (a Amount) String() string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}
	whole := v / Scale
	frac := v % Scale
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%06d", sign, whole, frac)
}
