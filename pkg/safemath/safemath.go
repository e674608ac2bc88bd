// Package safemath provides checked and saturating integer arithmetic.
package safemath

import (
	"errors"
	"math"
	"math/bits"

	"github.com/ryanavella/wide"
)

var ErrOverflow = errors.New("arithmetic overflow")

func CheckedAddU64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

func CheckedSubU64(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

func CheckedMulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

func SaturatingAddU64(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func SaturatingSubU64(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// CheckedMulU128 multiplies in 128 bits, failing if the product wraps.
func CheckedMulU128(a, b wide.Uint128) (wide.Uint128, error) {
	var zero wide.Uint128
	if a == zero || b == zero {
		return zero, nil
	}
	res := a.Mul(b)
	if res.Div(a) != b {
		return zero, ErrOverflow
	}
	return res, nil
}

// U128ToU64 narrows a 128-bit value, failing if it does not fit.
func U128ToU64(v wide.Uint128) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}
