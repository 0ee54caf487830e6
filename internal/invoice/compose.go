// Package invoice derives tax invoice data from completed orders and assigns
// gap-free numbers per location and fiscal year.
package invoice

import (
	"fmt"
	"time"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/gst"
	"github.com/noah-isme/backend-resto/internal/ledger"
	"github.com/noah-isme/backend-resto/internal/money"
	"github.com/noah-isme/backend-resto/internal/order"
)

// Supply types printed on the invoice.
const (
	IntraState = "intra_state"
	InterState = "inter_state"
)

// Seller is the issuing location.
type Seller struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	StateCode string `json:"stateCode"`
	GSTIN     string `json:"gstin,omitempty"`
}

// Customer is the buyer as recorded on the order.
type Customer struct {
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	StateCode string `json:"stateCode,omitempty"`
	GSTIN     string `json:"gstin,omitempty"`
}

// Line is one invoiced item with tax computed from its rate snapshot.
type Line struct {
	Name       string        `json:"name"`
	UnitPrice  money.Amount  `json:"unitPrice"`
	Qty        int64         `json:"qty"`
	TaxRateBps int64         `json:"taxRateBps"`
	Taxable    money.Amount  `json:"taxableValue"`
	Tax        gst.Breakdown `json:"tax"`
	Total      money.Amount  `json:"total"`
}

// Data is the complete invoice document. Rendering is left to clients.
type Data struct {
	Number     string        `json:"invoiceNumber"`
	FiscalYear int           `json:"fiscalYear"`
	IssuedAt   time.Time     `json:"issuedAt"`
	OrderID    string        `json:"orderId"`
	SupplyType string        `json:"supplyType"`
	Seller     Seller        `json:"seller"`
	Customer   Customer      `json:"customer"`
	Lines      []Line        `json:"lines"`
	Subtotal   money.Amount  `json:"subtotal"`
	Tax        gst.Breakdown `json:"tax"`
	Discount   money.Amount  `json:"discountAmount"`
	Total      money.Amount  `json:"total"`
}

// Compose builds invoice data for a completed order. It is pure: the same
// order, items, location, number and issue time always give the same Data.
// Line tax is recomputed from each item's stored rate and must agree with the
// order aggregates.
func Compose(o dbgen.Order, items []dbgen.OrderItem, loc dbgen.Location, number string, fiscalYear int, issuedAt time.Time) (Data, error) {
	if ledger.Status(o.Status) != ledger.StatusCompleted {
		return Data{}, common.Forbidden("INVOICE_UNAVAILABLE", "invoice is only available for completed orders")
	}
	if len(items) == 0 {
		return Data{}, common.InvariantViolation("LEDGER_INVARIANT", "completed order has no items", nil)
	}

	out := Data{
		Number:     number,
		FiscalYear: fiscalYear,
		IssuedAt:   issuedAt.UTC(),
		OrderID:    order.UUIDString(o.ID),
		SupplyType: InterState,
		Seller: Seller{
			Name:      loc.Name,
			Address:   loc.Address,
			StateCode: loc.StateCode,
			GSTIN:     loc.Gstin.String,
		},
		Customer: Customer{
			Name:      o.CustomerName,
			Phone:     o.CustomerPhone,
			StateCode: o.CustomerState,
			GSTIN:     o.CustomerGstin.String,
		},
		Lines:    make([]Line, 0, len(items)),
		Discount: o.DiscountAmount,
	}
	if gst.SameJurisdiction(loc.StateCode, o.CustomerState) {
		out.SupplyType = IntraState
	}

	for _, it := range items {
		line := gst.Line{UnitPrice: it.UnitPrice, Qty: int64(it.Qty), TaxRateBps: int64(it.TaxRateBps)}
		taxable, err := line.Subtotal()
		if err != nil {
			return Data{}, err
		}
		tax, err := gst.ComputeItemTax(taxable, line.TaxRateBps, loc.StateCode, o.CustomerState)
		if err != nil {
			return Data{}, err
		}
		lineTotal, err := money.Add(taxable, tax.Total)
		if err != nil {
			return Data{}, err
		}
		if out.Subtotal, err = money.Add(out.Subtotal, taxable); err != nil {
			return Data{}, err
		}
		if out.Tax, err = out.Tax.Add(tax); err != nil {
			return Data{}, err
		}
		out.Lines = append(out.Lines, Line{
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Qty:        line.Qty,
			TaxRateBps: line.TaxRateBps,
			Taxable:    taxable,
			Tax:        tax,
			Total:      lineTotal,
		})
	}

	stored := order.AggregatesOf(o)
	if out.Subtotal != stored.Subtotal || out.Tax != stored.Tax {
		return Data{}, common.InvariantViolation("LEDGER_INVARIANT", "invoice lines disagree with order aggregates",
			fmt.Errorf("lines subtotal=%d tax=%+v, order subtotal=%d tax=%+v", out.Subtotal, out.Tax, stored.Subtotal, stored.Tax))
	}
	gross, err := money.Add(out.Subtotal, out.Tax.Total)
	if err != nil {
		return Data{}, err
	}
	if out.Total, err = money.Sub(gross, out.Discount); err != nil {
		return Data{}, err
	}
	if out.Total != o.Total {
		return Data{}, common.InvariantViolation("LEDGER_INVARIANT", "invoice total disagrees with order total",
			fmt.Errorf("computed %d, stored %d", out.Total, o.Total))
	}
	return out, nil
}
