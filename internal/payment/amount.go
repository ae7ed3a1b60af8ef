package payment

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	maxMinorInt = decimal.NewFromInt(math.MaxInt64)

	errInvalidAmount = errors.New("payment: invalid amount")
)

// ToMinorUnits converts a major-unit amount to minor units, rounding half away
// from zero. Amounts that are not positive after rounding are rejected.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, errInvalidAmount
	}
	minor := amount.Mul(hundred).Round(0)
	if !minor.IsPositive() || minor.GreaterThan(maxMinorInt) {
		return 0, errInvalidAmount
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts minor units back to a major-unit decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
