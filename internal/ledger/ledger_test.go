package ledger

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/gst"
	"github.com/noah-isme/backend-resto/internal/money"
)

var intraState = TaxContext{LocationState: "MH", CustomerState: "MH"}

func item(price money.Amount, qty int64, rate int64) LineItem {
	return LineItem{ID: uuid.New(), UnitPrice: price, Qty: qty, TaxRateBps: rate}
}

func TestBuildSameAndCrossState(t *testing.T) {
	items := []LineItem{item(10000, 1, 500)}

	agg, err := Build(items, intraState, nil, time.Now())
	require.NoError(t, err)
	require.Equal(t, Aggregates{
		Subtotal: 10000,
		Tax:      gst.Breakdown{CGST: 250, SGST: 250, Total: 500},
		Total:    10500,
	}, agg)

	agg, err = Build(items, TaxContext{LocationState: "MH", CustomerState: "KA"}, nil, time.Now())
	require.NoError(t, err)
	require.Equal(t, gst.Breakdown{IGST: 500, Total: 500}, agg.Tax)
	require.EqualValues(t, 10500, agg.Total)
}

func TestBuildAppliesCouponToGrossTotal(t *testing.T) {
	c := &coupon.Coupon{DiscountType: coupon.Percentage, DiscountValue: 1000, IsActive: true}
	agg, err := Build([]LineItem{item(10000, 2, 0)}, intraState, c, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 20000, agg.Subtotal)
	require.EqualValues(t, 2000, agg.DiscountAmount)
	require.EqualValues(t, 18000, agg.Total)
	require.NoError(t, agg.Verify([]LineItem{item(10000, 2, 0)}))
}

func TestBuildRejectsInvalidCoupon(t *testing.T) {
	c := &coupon.Coupon{DiscountType: coupon.Fixed, DiscountValue: 100, MinOrderAmount: 50000, IsActive: true}
	_, err := Build([]LineItem{item(10000, 1, 500)}, intraState, c, time.Now())
	require.ErrorIs(t, err, common.ErrValidation)
	require.ErrorIs(t, err, coupon.ErrBelowMinimum)
}

func TestBuildRequiresItems(t *testing.T) {
	_, err := Build(nil, intraState, nil, time.Now())
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestQuantityDeltaExampleD(t *testing.T) {
	line := item(10000, 2, 500)
	agg, err := Build([]LineItem{line}, intraState, nil, time.Now())
	require.NoError(t, err)

	d, err := QuantityDelta(line, 5, intraState)
	require.NoError(t, err)
	require.Equal(t, Delta{Subtotal: 30000, Tax: gst.Breakdown{CGST: 750, SGST: 750, Total: 1500}}, d)

	next, normalized, err := agg.Apply(d)
	require.NoError(t, err)
	require.Empty(t, normalized)
	require.Equal(t, agg.Subtotal+30000, next.Subtotal)
	require.Equal(t, agg.Tax.CGST+750, next.Tax.CGST)
	require.Equal(t, agg.Tax.SGST+750, next.Tax.SGST)
	require.Equal(t, agg.Tax.IGST, next.Tax.IGST)
	require.Equal(t, agg.Total+31500, next.Total)
}

func TestRemovalDeltaReturnsToEmpty(t *testing.T) {
	a, b := item(999, 3, 1800), item(4550, 1, 500)
	agg, err := Build([]LineItem{a, b}, intraState, nil, time.Now())
	require.NoError(t, err)

	d, err := RemovalDelta(a, intraState)
	require.NoError(t, err)
	agg, _, err = agg.Apply(d)
	require.NoError(t, err)
	require.NoError(t, agg.Verify([]LineItem{b}))

	d, err = RemovalDelta(b, intraState)
	require.NoError(t, err)
	agg, _, err = agg.Apply(d)
	require.NoError(t, err)
	require.Equal(t, Aggregates{}, agg)
}

func TestApplyNormalizesOneUnitDrift(t *testing.T) {
	agg := Aggregates{Subtotal: 100, Tax: gst.Breakdown{CGST: 2, SGST: 2, Total: 4}, Total: 104}
	next, normalized, err := agg.Apply(Delta{Subtotal: -100, Tax: gst.Breakdown{CGST: -3, SGST: -2, Total: -5}})
	require.NoError(t, err)
	require.Equal(t, []string{"tax_cgst"}, normalized)
	require.True(t, next.Tax.Balanced())
	require.EqualValues(t, 0, next.Total)
}

func TestApplyRejectsNegativeBeyondTolerance(t *testing.T) {
	agg := Aggregates{Subtotal: 100, Tax: gst.Breakdown{IGST: 5, Total: 5}, Total: 105}
	_, _, err := agg.Apply(Delta{Subtotal: -102})
	require.ErrorIs(t, err, common.ErrInvariantViolation)
	require.ErrorIs(t, err, ErrNegativeAggregate)

	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "LEDGER_INVARIANT", appErr.Code)
}

func TestApplyRejectsDiscountAboveNewTotal(t *testing.T) {
	c := &coupon.Coupon{DiscountType: coupon.Fixed, DiscountValue: 5000, IsActive: true}
	big, small := item(8000, 1, 0), item(1000, 1, 0)
	agg, err := Build([]LineItem{big, small}, intraState, c, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 4000, agg.Total)

	d, err := RemovalDelta(big, intraState)
	require.NoError(t, err)
	unchanged, _, err := agg.Apply(d)
	require.ErrorIs(t, err, common.ErrInvariantViolation)
	require.Equal(t, agg, unchanged)
}

func TestDeltasKeepSubtotalExact(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tcs := []TaxContext{intraState, {LocationState: "MH", CustomerState: "GJ"}}
	rates := []int64{0, 500, 1200, 1800, 2800}

	for _, tc := range tcs {
		items := []LineItem{item(money.Amount(rng.Intn(50000)+1), int64(rng.Intn(5)+1), rates[rng.Intn(len(rates))])}
		agg, err := Build(items, tc, nil, time.Now())
		require.NoError(t, err)

		for step := 0; step < 200; step++ {
			var d Delta
			switch op := rng.Intn(3); {
			case op == 0 || len(items) == 1:
				added := item(money.Amount(rng.Intn(50000)+1), int64(rng.Intn(5)+1), rates[rng.Intn(len(rates))])
				d, err = AdditionDelta(added, tc)
				items = append(items, added)
			case op == 1:
				i := rng.Intn(len(items))
				newQty := int64(rng.Intn(9))
				d, err = QuantityDelta(items[i], newQty, tc)
				items[i].Qty = newQty
			default:
				i := rng.Intn(len(items))
				d, err = RemovalDelta(items[i], tc)
				items = append(items[:i], items[i+1:]...)
			}
			require.NoError(t, err)

			var normalized []string
			agg, normalized, err = agg.Apply(d)
			require.NoError(t, err)
			require.Empty(t, normalized)
			require.NoError(t, agg.Verify(items))

			lines := make([]gst.Line, 0, len(items))
			for _, it := range items {
				lines = append(lines, it.gstLine())
			}
			full, err := gst.ComputeOrderTax(lines, tc.LocationState, tc.CustomerState)
			require.NoError(t, err)
			require.Equal(t, full, agg.Tax)
		}
	}
}

func TestQuantityDeltaRejectsNegative(t *testing.T) {
	_, err := QuantityDelta(item(100, 1, 0), -1, intraState)
	require.ErrorIs(t, err, common.ErrValidation)
}
