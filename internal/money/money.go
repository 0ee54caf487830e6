// Package money implements exact arithmetic on minor currency units.
//
// Amounts are signed 64-bit integers counted in the smallest denomination of
// the currency (paise for INR). Rates are expressed in basis points, so 5% is
// 500 and 100% is 10000. Nothing in this package converts to floating point.
package money

import (
	"errors"
	"fmt"
	"math"
)

// Amount is a monetary value in minor units.
type Amount = int64

// BpsDenominator is the number of basis points in one whole.
const BpsDenominator int64 = 10000

var (
	// ErrOverflow is returned when a result does not fit in an Amount.
	ErrOverflow = errors.New("money: overflow")
	// ErrNegativeRate is returned when a basis point rate is below zero.
	ErrNegativeRate = errors.New("money: negative rate")
	// ErrInvalidParts is returned when SplitEven is asked for fewer than one part.
	ErrInvalidParts = errors.New("money: parts must be positive")
)

// Add returns a+b or ErrOverflow.
func Add(a, b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}

// Sub returns a-b or ErrOverflow.
func Sub(a, b Amount) (Amount, error) {
	if b == math.MinInt64 {
		if a >= 0 {
			return 0, fmt.Errorf("%w: %d - %d", ErrOverflow, a, b)
		}
		return a - b, nil
	}
	return Add(a, -b)
}

// Mul returns a*n or ErrOverflow. It is used for unit price times quantity.
func Mul(a Amount, n int64) (Amount, error) {
	if a == 0 || n == 0 {
		return 0, nil
	}
	product := a * n
	if product/n != a || (a == -1 && n == math.MinInt64) || (n == -1 && a == math.MinInt64) {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, n)
	}
	return product, nil
}

// MultiplyRate returns amount*rateBps/10000 rounded to the nearest minor unit.
// Ties round half up in magnitude, so 0.5 becomes 1 and -0.5 becomes -1. The
// division happens once on the exact product; no intermediate value is rounded.
func MultiplyRate(amount Amount, rateBps int64) (Amount, error) {
	if rateBps < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeRate, rateBps)
	}
	product, err := Mul(amount, rateBps)
	if err != nil {
		return 0, err
	}
	quotient := product / BpsDenominator
	remainder := product % BpsDenominator
	switch {
	case remainder > 0 && remainder*2 >= BpsDenominator:
		quotient++
	case remainder < 0 && -remainder*2 >= BpsDenominator:
		quotient--
	}
	return quotient, nil
}

// SplitEven divides amount into n parts that sum to amount exactly. The first
// amount mod n parts receive floor(amount/n)+1 and the rest floor(amount/n).
// Negative amounts are split by magnitude and negated, which keeps the larger
// magnitudes at the front.
func SplitEven(amount Amount, n int) ([]Amount, error) {
	if n <= 0 {
		return nil, ErrInvalidParts
	}
	if amount == math.MinInt64 {
		return nil, fmt.Errorf("%w: cannot split %d", ErrOverflow, amount)
	}
	sign := Amount(1)
	if amount < 0 {
		sign = -1
		amount = -amount
	}
	base := amount / int64(n)
	extra := int(amount % int64(n))
	parts := make([]Amount, n)
	for i := range parts {
		part := base
		if i < extra {
			part++
		}
		parts[i] = sign * part
	}
	return parts, nil
}

// Sum adds all values, failing on overflow.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := Add(total, v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
