// Package odds holds the pure stake/odds/payout arithmetic used at placement,
// cancellation and settlement time.
package odds

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Currency amounts are kept to cents.
const Places = 2

var (
	MinOdds = decimal.NewFromInt(1)

	// DefaultRefundFraction is the share of the stake returned when a pending bet is cancelled.
	DefaultRefundFraction = decimal.RequireFromString("0.95")

	ErrOddsTooLow   = errors.New("odds must be at least 1.0")
	ErrInvalidStake = errors.New("stake must be greater than zero")
)

// ValidateOdds rejects odds below the 1.0 floor
func ValidateOdds(o decimal.Decimal) error {
	if o.LessThan(MinOdds) {
		return ErrOddsTooLow
	}
	return nil
}

// ValidateStake rejects zero or negative stakes
func ValidateStake(stake decimal.Decimal) error {
	if !stake.IsPositive() {
		return ErrInvalidStake
	}
	return nil
}

// PotentialPayout returns stake × odds rounded to cents
func PotentialPayout(stake, o decimal.Decimal) decimal.Decimal {
	return stake.Mul(o).Round(Places)
}

// Profit returns the net winnings of a settled bet
func Profit(payout, stake decimal.Decimal) decimal.Decimal {
	return payout.Sub(stake)
}

// Refund returns stake × fraction rounded to cents. Fractions outside (0, 1] fall
// back to DefaultRefundFraction.
func Refund(stake, fraction decimal.Decimal) decimal.Decimal {
	if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
		fraction = DefaultRefundFraction
	}
	return stake.Mul(fraction).Round(Places)
}
