// Package reward holds the time-weighted reward formula used by staking pools along with the
// checked 64-bit arithmetic every accumulator update relies on.
package reward

import (
	"errors"

	"github.com/holiman/uint256"
)

// Scale is the fixed normalization divisor applied to amount * duration * multiplier.
const Scale = 1000

// ErrOverflow is returned whenever an intermediate value leaves the 64-bit range.
var ErrOverflow = errors.New("arithmetic overflow")

// RewardsOwed returns floor(amount * elapsed * multiplier / Scale).
// Multiplication is evaluated left to right and every intermediate product must fit in 64 bits.
// A negative elapsed duration (clock moved backwards) is treated as zero.
func RewardsOwed(amount uint64, elapsed int64, multiplier uint64) (uint64, error) {
	if elapsed <= 0 {
		return 0, nil
	}
	prod, err := CheckedMul(amount, uint64(elapsed))
	if err != nil {
		return 0, err
	}
	prod, err = CheckedMul(prod, multiplier)
	if err != nil {
		return 0, err
	}
	return prod / Scale, nil
}

// CheckedMul returns a*b or ErrOverflow.
func CheckedMul(a, b uint64) (uint64, error) {
	z := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	if !z.IsUint64() {
		return 0, ErrOverflow
	}
	return z.Uint64(), nil
}

// CheckedAdd returns a+b or ErrOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	z, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !z.IsUint64() {
		return 0, ErrOverflow
	}
	return z.Uint64(), nil
}

// CheckedSub returns a-b, or ErrOverflow if b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// MulDiv returns floor(a*b/d). The product is computed in 256 bits so only the quotient has to fit
// in 64 bits. d must be non-zero.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, errors.New("division by zero")
	}
	z, overflow := new(uint256.Int).MulDivOverflow(uint256.NewInt(a), uint256.NewInt(b), uint256.NewInt(d))
	if overflow || !z.IsUint64() {
		return 0, ErrOverflow
	}
	return z.Uint64(), nil
}

// Elapsed returns now-since clamped to zero, so callers never see a negative span when the
// clock regresses.
func Elapsed(since, now int64) int64 {
	if now <= since {
		return 0
	}
	return now - since
}
