package money

import "testing"

func TestFromFloatRoundsHalfAwayFromZero(t *testing.T) {
	got, err := FromFloat(1.0000005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1000001 && got != 1000000 {
		t.Fatalf("unexpected rounding: got %d", got)
	}

	got, err = FromFloat(-2.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -2500000 {
		t.Fatalf("FromFloat(-2.5) = %d, want -2500000", got)
	}
}

func TestFromFloatRejectsNonFinite(t *testing.T) {
	if _, err := FromFloat(nan()); err == nil {
		t.Fatal("expected error for NaN")
	}
	if _, err := FromFloat(inf()); err == nil {
		t.Fatal("expected error for +Inf")
	}
}

func TestAddSubNegAbs(t *testing.T) {
	a := MustFromFloat(10.5)
	b := MustFromFloat(3.25)

	if got := a.Add(b); got != MustFromFloat(13.75) {
		t.Fatalf("Add: got %v want 13.75", got)
	}
	if got := a.Sub(b); got != MustFromFloat(7.25) {
		t.Fatalf("Sub: got %v want 7.25", got)
	}
	if got := a.Neg(); got != MustFromFloat(-10.5) {
		t.Fatalf("Neg: got %v want -10.5", got)
	}
	if got := a.Neg().Abs(); got != a {
		t.Fatalf("Abs: got %v want %v", got, a)
	}
}

func TestCmpAndSign(t *testing.T) {
	a := MustFromFloat(5)
	b := MustFromFloat(-5)

	if a.Cmp(b) != 1 {
		t.Fatal("expected a > b")
	}
	if b.Cmp(a) != -1 {
		t.Fatal("expected b < a")
	}
	if Zero.Cmp(Zero) != 0 {
		t.Fatal("expected zero == zero")
	}
	if a.Sign() != 1 || b.Sign() != -1 || Zero.Sign() != 0 {
		t.Fatal("unexpected signs")
	}
}

func TestMulQtyAndDivQty(t *testing.T) {
	price := MustFromFloat(100.50)
	notional := price.MulQty(3)
	if notional != MustFromFloat(301.50) {
		t.Fatalf("MulQty: got %v want 301.50", notional)
	}

	back := notional.DivQty(3)
	if back != price {
		t.Fatalf("DivQty: got %v want %v", back, price)
	}
}

func TestStringFormatting(t *testing.T) {
	if got := MustFromFloat(10.5).String(); got != "10.500000" {
		t.Fatalf("String: got %q want %q", got, "10.500000")
	}
	if got := MustFromFloat(-0.01).String(); got != "-0.010000" {
		t.Fatalf("String: got %q want %q", got, "-0.010000")
	}
}

func TestValidateTick(t *testing.T) {
	price := MustFromFloat(100.05)
	tick := MustFromFloat(0.05)
	if err := ValidateTick(price, tick); err != nil {
		t.Fatalf("expected valid tick, got %v", err)
	}

	bad := MustFromFloat(100.03)
	if err := ValidateTick(bad, tick); err == nil {
		t.Fatal("expected tick validation error")
	}
}

func TestValidateStep(t *testing.T) {
	q := Quantity(1.5)
	if err := q.ValidateStep(0.5); err != nil {
		t.Fatalf("expected valid step, got %v", err)
	}
	if err := q.ValidateStep(0.2); err == nil {
		t.Fatal("expected step validation error")
	}
}

func nan() float64 {
	var z float64
	return z / z
}

func inf() float64 {
	var z float64
	return 1 / z
}
