// Package gst computes Indian goods and services tax breakdowns in minor units.
package gst

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-resto/internal/money"
)

// Breakdown is the tax attributed to a line or an order. CGST+SGST+IGST always
// equals Total.
type Breakdown struct {
	CGST  money.Amount `json:"cgst"`
	SGST  money.Amount `json:"sgst"`
	IGST  money.Amount `json:"igst"`
	Total money.Amount `json:"totalTax"`
}

// Line is the minimal view of an order item needed for tax.
type Line struct {
	UnitPrice  money.Amount
	Qty        int64
	TaxRateBps int64
}

// Subtotal returns UnitPrice*Qty.
func (l Line) Subtotal() (money.Amount, error) {
	if l.Qty < 0 {
		return 0, fmt.Errorf("gst: negative quantity %d", l.Qty)
	}
	return money.Mul(l.UnitPrice, l.Qty)
}

// SameJurisdiction reports whether the supply is intra-state. An unknown
// customer state is treated as inter-state.
func SameJurisdiction(locationState, customerState string) bool {
	customer := strings.TrimSpace(customerState)
	if customer == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(locationState), customer)
}

// ComputeItemTax returns the breakdown for a single line subtotal.
func ComputeItemTax(subtotal money.Amount, rateBps int64, locationState, customerState string) (Breakdown, error) {
	total, err := money.MultiplyRate(subtotal, rateBps)
	if err != nil {
		return Breakdown{}, err
	}
	if !SameJurisdiction(locationState, customerState) {
		return Breakdown{IGST: total, Total: total}, nil
	}
	halves, err := money.SplitEven(total, 2)
	if err != nil {
		return Breakdown{}, err
	}
	return Breakdown{CGST: halves[0], SGST: halves[1], Total: total}, nil
}

// ComputeLineTax is ComputeItemTax on a line's subtotal.
func ComputeLineTax(line Line, locationState, customerState string) (Breakdown, error) {
	subtotal, err := line.Subtotal()
	if err != nil {
		return Breakdown{}, err
	}
	return ComputeItemTax(subtotal, line.TaxRateBps, locationState, customerState)
}

// ComputeOrderTax sums the per-line breakdowns component-wise.
func ComputeOrderTax(lines []Line, locationState, customerState string) (Breakdown, error) {
	var out Breakdown
	for i, line := range lines {
		b, err := ComputeLineTax(line, locationState, customerState)
		if err != nil {
			return Breakdown{}, fmt.Errorf("gst: line %d: %w", i, err)
		}
		out, err = out.Add(b)
		if err != nil {
			return Breakdown{}, err
		}
	}
	return out, nil
}

// Add returns b+o component-wise.
func (b Breakdown) Add(o Breakdown) (Breakdown, error) {
	var (
		out Breakdown
		err error
	)
	if out.CGST, err = money.Add(b.CGST, o.CGST); err != nil {
		return Breakdown{}, err
	}
	if out.SGST, err = money.Add(b.SGST, o.SGST); err != nil {
		return Breakdown{}, err
	}
	if out.IGST, err = money.Add(b.IGST, o.IGST); err != nil {
		return Breakdown{}, err
	}
	if out.Total, err = money.Add(b.Total, o.Total); err != nil {
		return Breakdown{}, err
	}
	return out, nil
}

// Sub returns b-o component-wise.
func (b Breakdown) Sub(o Breakdown) (Breakdown, error) {
	return b.Add(o.Neg())
}

// Neg flips the sign of every component.
func (b Breakdown) Neg() Breakdown {
	return Breakdown{CGST: -b.CGST, SGST: -b.SGST, IGST: -b.IGST, Total: -b.Total}
}

// Balanced reports whether the components add up to Total.
func (b Breakdown) Balanced() bool {
	return b.CGST+b.SGST+b.IGST == b.Total
}
