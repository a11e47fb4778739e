package position

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientMargin indicates opening or increasing a position would
	// leave the account below the required margin.
	ErrInsufficientMargin = errors.New("position: insufficient margin")

	// ErrPositionLimitExceeded indicates a per-user position size cap would
	// be exceeded.
	ErrPositionLimitExceeded = errors.New("position: per-user position limit exceeded")

	// ErrNotionalLimitExceeded indicates a per-user notional cap would be
	// exceeded.
	ErrNotionalLimitExceeded = errors.New("position: per-user notional limit exceeded")

	// ErrTooManyOpenPositions indicates the user already holds the maximum
	// number of distinct open positions.
	ErrTooManyOpenPositions = errors.New("position: too many open positions")

	// ErrAccountInactive indicates the account has been frozen (e.g. mid
	// liquidation) and may not submit new orders.
	ErrAccountInactive = errors.New("position: account is inactive")
)

func errOpenInterestExceeded(symbol string) error {
	return fmt.Errorf("position: open interest limit exceeded for %s", symbol)
}
