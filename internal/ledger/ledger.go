// Package ledger maintains the cached monetary aggregates of an order.
//
// Aggregates are built once from the line items when an order is created and
// afterwards moved only by deltas: the difference between an item's old and
// new contribution. Every figure is in minor units; nothing is clamped.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/gst"
	"github.com/noah-isme/backend-resto/internal/money"
)

// Tolerance is the largest negative value an aggregate may reach through
// rounding before it is treated as corrupt.
const Tolerance money.Amount = 1

// ErrNegativeAggregate is the cause attached to invariant violations.
var ErrNegativeAggregate = errors.New("ledger: aggregate below zero")

// TaxContext carries the jurisdictions that decide the CGST/SGST vs IGST split.
type TaxContext struct {
	LocationState string
	CustomerState string
}

// LineItem is an order item with its tax rate snapshot.
type LineItem struct {
	ID         uuid.UUID
	UnitPrice  money.Amount
	Qty        int64
	TaxRateBps int64
}

func (li LineItem) gstLine() gst.Line {
	return gst.Line{UnitPrice: li.UnitPrice, Qty: li.Qty, TaxRateBps: li.TaxRateBps}
}

// Aggregates are the cached totals stored on the order row.
type Aggregates struct {
	Subtotal       money.Amount  `json:"subtotal"`
	Tax            gst.Breakdown `json:"tax"`
	DiscountAmount money.Amount  `json:"discountAmount"`
	Total          money.Amount  `json:"total"`
}

// Delta is a signed change to the subtotal and tax of an order.
type Delta struct {
	Subtotal money.Amount  `json:"subtotal"`
	Tax      gst.Breakdown `json:"tax"`
}

// Contribution is the subtotal and tax one item adds to its order.
func Contribution(item LineItem, tc TaxContext) (Delta, error) {
	subtotal, err := item.gstLine().Subtotal()
	if err != nil {
		return Delta{}, err
	}
	tax, err := gst.ComputeItemTax(subtotal, item.TaxRateBps, tc.LocationState, tc.CustomerState)
	if err != nil {
		return Delta{}, err
	}
	return Delta{Subtotal: subtotal, Tax: tax}, nil
}

// AdditionDelta is the change caused by adding item to an order.
func AdditionDelta(item LineItem, tc TaxContext) (Delta, error) {
	return Contribution(item, tc)
}

// RemovalDelta is the negated contribution of item.
func RemovalDelta(item LineItem, tc TaxContext) (Delta, error) {
	d, err := Contribution(item, tc)
	if err != nil {
		return Delta{}, err
	}
	return Delta{Subtotal: -d.Subtotal, Tax: d.Tax.Neg()}, nil
}

// QuantityDelta is the change caused by setting item's quantity to newQty.
func QuantityDelta(item LineItem, newQty int64, tc TaxContext) (Delta, error) {
	if newQty < 0 {
		return Delta{}, common.Validation("BAD_REQUEST", "quantity must not be negative")
	}
	before, err := Contribution(item, tc)
	if err != nil {
		return Delta{}, err
	}
	changed := item
	changed.Qty = newQty
	after, err := Contribution(changed, tc)
	if err != nil {
		return Delta{}, err
	}
	subtotal, err := money.Sub(after.Subtotal, before.Subtotal)
	if err != nil {
		return Delta{}, err
	}
	tax, err := after.Tax.Sub(before.Tax)
	if err != nil {
		return Delta{}, err
	}
	return Delta{Subtotal: subtotal, Tax: tax}, nil
}

// Build computes the aggregates of a new order. The coupon, if any, is
// validated against the pre-discount total (subtotal plus tax) at now.
func Build(items []LineItem, tc TaxContext, c *coupon.Coupon, now time.Time) (Aggregates, error) {
	if len(items) == 0 {
		return Aggregates{}, common.Validation("BAD_REQUEST", "order must contain at least one item")
	}
	var agg Aggregates
	for i, item := range items {
		d, err := Contribution(item, tc)
		if err != nil {
			return Aggregates{}, fmt.Errorf("item %d: %w", i, err)
		}
		if agg.Subtotal, err = money.Add(agg.Subtotal, d.Subtotal); err != nil {
			return Aggregates{}, err
		}
		if agg.Tax, err = agg.Tax.Add(d.Tax); err != nil {
			return Aggregates{}, err
		}
	}
	gross, err := money.Add(agg.Subtotal, agg.Tax.Total)
	if err != nil {
		return Aggregates{}, err
	}
	if c != nil {
		if err := coupon.Validate(*c, gross, now); err != nil {
			return Aggregates{}, coupon.InvalidError(err)
		}
		if agg.DiscountAmount, err = coupon.ComputeDiscount(*c, gross); err != nil {
			return Aggregates{}, err
		}
	}
	agg.Total = gross - agg.DiscountAmount
	if agg.Total < 0 {
		return Aggregates{}, violation("total", agg.Total)
	}
	return agg, nil
}

// Gross is the pre-discount total.
func (a Aggregates) Gross() money.Amount {
	return a.Subtotal + a.Tax.Total
}

// Apply merges d into a. A component that lands at -Tolerance is reset to
// zero and reported in the returned field list; anything lower is an
// invariant violation and a is left untouched. The stored discount is kept,
// so a discount larger than the new gross total also violates.
func (a Aggregates) Apply(d Delta) (Aggregates, []string, error) {
	next := a
	var err error
	if next.Subtotal, err = money.Add(a.Subtotal, d.Subtotal); err != nil {
		return a, nil, err
	}
	if next.Tax, err = a.Tax.Add(d.Tax); err != nil {
		return a, nil, err
	}

	var normalized []string
	fields := []struct {
		name string
		v    *money.Amount
	}{
		{"subtotal", &next.Subtotal},
		{"tax_cgst", &next.Tax.CGST},
		{"tax_sgst", &next.Tax.SGST},
		{"tax_igst", &next.Tax.IGST},
	}
	for _, f := range fields {
		switch {
		case *f.v >= 0:
		case *f.v >= -Tolerance:
			*f.v = 0
			normalized = append(normalized, f.name)
		default:
			return a, nil, violation(f.name, *f.v)
		}
	}
	next.Tax.Total = next.Tax.CGST + next.Tax.SGST + next.Tax.IGST

	gross, err := money.Add(next.Subtotal, next.Tax.Total)
	if err != nil {
		return a, nil, err
	}
	next.Total = gross - next.DiscountAmount
	switch {
	case next.Total >= 0:
	case next.Total >= -Tolerance && next.DiscountAmount > 0:
		next.DiscountAmount += next.Total
		next.Total = 0
		normalized = append(normalized, "total")
	default:
		return a, nil, violation("total", next.Total)
	}
	return next, normalized, nil
}

// Verify recomputes subtotal from items and checks the stored aggregates
// are internally consistent.
func (a Aggregates) Verify(items []LineItem) error {
	var subtotal money.Amount
	for _, item := range items {
		s, err := item.gstLine().Subtotal()
		if err != nil {
			return err
		}
		if subtotal, err = money.Add(subtotal, s); err != nil {
			return err
		}
	}
	if subtotal != a.Subtotal {
		return common.InvariantViolation("LEDGER_INVARIANT",
			fmt.Sprintf("subtotal %d does not match items %d", a.Subtotal, subtotal), nil)
	}
	if !a.Tax.Balanced() {
		return common.InvariantViolation("LEDGER_INVARIANT", "tax components do not sum to total tax", nil)
	}
	if a.Total != a.Gross()-a.DiscountAmount {
		return common.InvariantViolation("LEDGER_INVARIANT", "total does not equal subtotal plus tax minus discount", nil)
	}
	return nil
}

func violation(field string, value money.Amount) error {
	return common.InvariantViolation("LEDGER_INVARIANT",
		fmt.Sprintf("%s would become %d", field, value),
		fmt.Errorf("%w: %s", ErrNegativeAggregate, field))
}
