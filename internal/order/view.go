package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/gst"
	"github.com/noah-isme/backend-resto/internal/ledger"
	"github.com/noah-isme/backend-resto/internal/money"
)

// View is the API representation of an order.
type View struct {
	ID               string        `json:"id"`
	LocationID       string        `json:"locationId"`
	Status           ledger.Status `json:"status"`
	CustomerName     string        `json:"customerName,omitempty"`
	CustomerPhone    string        `json:"customerPhone,omitempty"`
	CustomerState    string        `json:"customerState,omitempty"`
	CustomerGSTIN    *string       `json:"customerGstin,omitempty"`
	Subtotal         money.Amount  `json:"subtotal"`
	Tax              gst.Breakdown `json:"tax"`
	DiscountAmount   money.Amount  `json:"discountAmount"`
	Total            money.Amount  `json:"total"`
	CouponID         *string       `json:"couponId,omitempty"`
	GatewayOrderID   *string       `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID *string       `json:"gatewayPaymentId,omitempty"`
	AcceptedAt       *time.Time    `json:"acceptedAt,omitempty"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	Version          int64         `json:"version"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	Items            []ItemView    `json:"items,omitempty"`
}

// ItemView is one order line.
type ItemView struct {
	ID         string       `json:"id"`
	MenuItemID *string      `json:"menuItemId,omitempty"`
	Name       string       `json:"name"`
	UnitPrice  money.Amount `json:"unitPrice"`
	Qty        int64        `json:"qty"`
	TaxRateBps int64        `json:"taxRateBps"`
	Subtotal   money.Amount `json:"subtotal"`
}

func toView(o dbgen.Order, items []dbgen.OrderItem) View {
	v := View{
		ID:               UUIDString(o.ID),
		LocationID:       UUIDString(o.LocationID),
		Status:           ledger.Status(o.Status),
		CustomerName:     o.CustomerName,
		CustomerPhone:    o.CustomerPhone,
		CustomerState:    o.CustomerState,
		CustomerGSTIN:    textPtr(o.CustomerGstin),
		Subtotal:         o.Subtotal,
		Tax:              AggregatesOf(o).Tax,
		DiscountAmount:   o.DiscountAmount,
		Total:            o.Total,
		CouponID:         uuidPtr(o.CouponID),
		GatewayOrderID:   textPtr(o.GatewayOrderID),
		GatewayPaymentID: textPtr(o.GatewayPaymentID),
		AcceptedAt:       timePtr(o.AcceptedAt),
		CompletedAt:      timePtr(o.CompletedAt),
		Version:          o.Version,
		CreatedAt:        o.CreatedAt.Time,
		UpdatedAt:        o.UpdatedAt.Time,
	}
	for _, it := range items {
		v.Items = append(v.Items, ItemView{
			ID:         UUIDString(it.ID),
			MenuItemID: uuidPtr(it.MenuItemID),
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Qty:        int64(it.Qty),
			TaxRateBps: int64(it.TaxRateBps),
			Subtotal:   it.UnitPrice * int64(it.Qty),
		})
	}
	return v
}

// AggregatesOf reads the cached aggregates stored on an order row.
func AggregatesOf(o dbgen.Order) ledger.Aggregates {
	return ledger.Aggregates{
		Subtotal: o.Subtotal,
		Tax: gst.Breakdown{
			CGST:  o.TaxCgst,
			SGST:  o.TaxSgst,
			IGST:  o.TaxIgst,
			Total: o.TaxCgst + o.TaxSgst + o.TaxIgst,
		},
		DiscountAmount: o.DiscountAmount,
		Total:          o.Total,
	}
}

// LineItems converts stored items for the ledger.
func LineItems(items []dbgen.OrderItem) []ledger.LineItem {
	out := make([]ledger.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, LineItemOf(it))
	}
	return out
}

// LineItemOf converts one stored item.
func LineItemOf(it dbgen.OrderItem) ledger.LineItem {
	return ledger.LineItem{
		ID:         uuid.UUID(it.ID.Bytes),
		UnitPrice:  it.UnitPrice,
		Qty:        int64(it.Qty),
		TaxRateBps: int64(it.TaxRateBps),
	}
}

// TaxContextOf returns the jurisdictions for an order placed at loc.
func TaxContextOf(o dbgen.Order, loc dbgen.Location) ledger.TaxContext {
	return ledger.TaxContext{LocationState: loc.StateCode, CustomerState: o.CustomerState}
}

// UUIDString formats a pgtype.UUID, returning "" when it is null.
func UUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

// ParseUUID parses a path or body identifier.
func ParseUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidPtr(id pgtype.UUID) *string {
	if !id.Valid {
		return nil
	}
	s := UUIDString(id)
	return &s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
