package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-resto/internal/money"
)

// Rejection reasons, checked in this order by Validate.
var (
	// ErrInactive is returned for coupons switched off by the restaurant.
	ErrInactive = errors.New("coupon inactive")
	// ErrNotYetValid is returned before the validity window opens.
	ErrNotYetValid = errors.New("coupon not yet valid")
	// ErrExpired is returned after the validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrBelowMinimum indicates the order amount did not reach the coupon minimum.
	ErrBelowMinimum = errors.New("coupon minimum order amount not met")
	// ErrLimitReached indicates the coupon has exhausted its usage limit.
	ErrLimitReached = errors.New("coupon usage limit reached")
)

// DiscountType selects how DiscountValue is interpreted.
type DiscountType string

const (
	// Percentage coupons carry DiscountValue in basis points (10% = 1000).
	Percentage DiscountType = "percentage"
	// Fixed coupons carry DiscountValue in minor units.
	Fixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == Percentage || t == Fixed
}

// Coupon captures the runtime constraints of a coupon.
type Coupon struct {
	ID                uuid.UUID
	Code              string
	DiscountType      DiscountType
	DiscountValue     int64
	MinOrderAmount    money.Amount
	MaxDiscountAmount *money.Amount
	UsageLimit        *int32
	UsedCount         int32
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	IsActive          bool
}

// Validate checks c against an order amount at instant now. The first failing
// check decides the returned error.
func Validate(c Coupon, orderAmount money.Amount, now time.Time) error {
	if !c.IsActive {
		return ErrInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrNotYetValid
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return ErrExpired
	}
	if orderAmount < c.MinOrderAmount {
		return ErrBelowMinimum
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrLimitReached
	}
	return nil
}

// ComputeDiscount is the only place a coupon discount is derived. Percentage
// discounts are rounded half up and capped by MaxDiscountAmount; fixed
// discounts never exceed the order amount.
func ComputeDiscount(c Coupon, orderAmount money.Amount) (money.Amount, error) {
	if orderAmount <= 0 {
		return 0, nil
	}
	var discount money.Amount
	switch c.DiscountType {
	case Percentage:
		d, err := money.MultiplyRate(orderAmount, c.DiscountValue)
		if err != nil {
			return 0, err
		}
		discount = d
		if c.MaxDiscountAmount != nil && discount > *c.MaxDiscountAmount {
			discount = *c.MaxDiscountAmount
		}
	case Fixed:
		discount = c.DiscountValue
	default:
		return 0, errors.New("coupon: unknown discount type " + string(c.DiscountType))
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// Reason maps a rejection error to its wire code. Unknown errors yield "".
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, ErrLimitReached):
		return "limit_reached"
	default:
		return ""
	}
}

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
