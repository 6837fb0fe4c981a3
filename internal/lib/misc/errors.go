package misc

import "errors"

var (
	errNegativeAmount = errors.New("amount can't be negative")
	errTooPrecise     = errors.New("amount has more decimal places than the token supports")
	errAmountRange    = errors.New("amount out of range")
)
