package misc

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormattedAmount renders an integer base-unit amount using the token's number of decimals, trimming trailing
// zeros - ie: 1500000 w/ 6 decimals is "1.5".
func FormattedAmount(amount uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals).String()
}

// ParseAmount converts a decimal string like "1.5" into base units for a token with the given decimals.
// Fractions finer than the token allows are rejected.
func ParseAmount(value string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errNegativeAmount
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, errTooPrecise
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, errAmountRange
	}
	return bi.Uint64(), nil
}
