package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/coupon"
	"github.com/noah-isme/backend-resto/internal/db"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/ledger"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/resilience"
	"github.com/noah-isme/backend-resto/internal/tenant"
)

const (
	defaultMaxRetries = 5
	defaultRetryBase  = 10 * time.Millisecond
)

var errVersionConflict = errors.New("order: version conflict")

// ItemInput describes a line item supplied by the client. The tax rate is
// captured on the row and never re-read from the menu.
type ItemInput struct {
	MenuItemID string `json:"menuItemId" validate:"omitempty,uuid"`
	Name       string `json:"name" validate:"required,max=200"`
	UnitPrice  int64  `json:"unitPrice" validate:"min=0"`
	Qty        int64  `json:"qty" validate:"min=1,max=1000"`
	TaxRateBps int64  `json:"taxRateBps" validate:"min=0,max=10000"`
}

// CreateInput is the payload for placing an order.
type CreateInput struct {
	LocationID    string      `json:"locationId" validate:"required,uuid"`
	CustomerName  string      `json:"customerName" validate:"max=200"`
	CustomerPhone string      `json:"customerPhone" validate:"max=32"`
	CustomerState string      `json:"customerState" validate:"max=8"`
	CustomerGSTIN string      `json:"customerGstin" validate:"omitempty,len=15,alphanum"`
	CouponCode    string      `json:"couponCode" validate:"max=64"`
	Items         []ItemInput `json:"items" validate:"required,min=1,max=200,dive"`
}

// ListFilter narrows List.
type ListFilter struct {
	Status     string
	LocationID string
	Page       int
	PerPage    int
}

// Service owns order persistence: creation, item edits under optimistic
// concurrency, and status transitions.
type Service struct {
	Q          dbgen.Querier
	Tx         db.Transactor
	Coupons    *coupon.Service
	Events     *events.Bus
	Logger     zerolog.Logger
	Now        func() time.Time
	MaxRetries int
	RetryBase  time.Duration
}

// Create places a new order with its items, redeeming the coupon in the
// same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (View, error) {
	ctx, span := otel.Tracer("order.Service").Start(ctx, "OrderService.Create")
	defer span.End()

	result := "error"
	defer func() { obs.Count(obs.OrderMutationsTotal, "create", result) }()

	if s == nil || s.Tx == nil {
		return View{}, errors.New("order service not configured")
	}
	tenantID, err := tenant.UUIDFromContext(ctx)
	if err != nil {
		return View{}, common.Validation("TENANT_REQUIRED", err.Error())
	}
	locationID, err := ParseUUID(in.LocationID)
	if err != nil {
		return View{}, common.Validation("BAD_REQUEST", "invalid location id")
	}

	var c *coupon.Coupon
	if strings.TrimSpace(in.CouponCode) != "" {
		if s.Coupons == nil {
			return View{}, errors.New("coupon service not configured")
		}
		found, err := s.Coupons.Lookup(ctx, in.CouponCode)
		if err != nil {
			return View{}, err
		}
		c = &found
	}

	var (
		created dbgen.Order
		rows    []dbgen.OrderItem
	)
	err = s.Tx.InTx(ctx, func(q dbgen.Querier) error {
		loc, err := q.GetLocationForTenant(ctx, dbgen.GetLocationForTenantParams{ID: locationID, TenantID: tenantID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.NotFound("LOCATION_NOT_FOUND", "location not found")
			}
			return fmt.Errorf("load location: %w", err)
		}
		items := make([]ledger.LineItem, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, ledger.LineItem{UnitPrice: it.UnitPrice, Qty: it.Qty, TaxRateBps: it.TaxRateBps})
		}
		tc := ledger.TaxContext{LocationState: loc.StateCode, CustomerState: in.CustomerState}
		agg, err := ledger.Build(items, tc, c, s.now())
		if err != nil {
			return err
		}
		params := dbgen.CreateOrderParams{
			TenantID:       tenantID,
			LocationID:     locationID,
			CustomerName:   strings.TrimSpace(in.CustomerName),
			CustomerPhone:  strings.TrimSpace(in.CustomerPhone),
			CustomerState:  strings.ToUpper(strings.TrimSpace(in.CustomerState)),
			CustomerGstin:  toText(strings.ToUpper(strings.TrimSpace(in.CustomerGSTIN))),
			Subtotal:       agg.Subtotal,
			TaxCgst:        agg.Tax.CGST,
			TaxSgst:        agg.Tax.SGST,
			TaxIgst:        agg.Tax.IGST,
			DiscountAmount: agg.DiscountAmount,
			Total:          agg.Total,
		}
		if c != nil {
			params.CouponID = pgtype.UUID{Bytes: c.ID, Valid: true}
		}
		created, err = q.CreateOrder(ctx, params)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		rows = rows[:0]
		for _, it := range in.Items {
			row, err := q.CreateOrderItem(ctx, itemParams(created.ID, it))
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			rows = append(rows, row)
		}
		if c != nil {
			if err := s.Coupons.Redeem(ctx, q, tenantID, *c, created.ID, agg.DiscountAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return View{}, err
	}
	result = "ok"
	span.SetAttributes(attribute.String("order.id", UUIDString(created.ID)))
	s.Logger.Debug().Str("order_id", UUIDString(created.ID)).Int64("total", created.Total).Msg("order created")
	s.emit(ctx, events.TopicOrderCreated, created, map[string]any{
		"orderId":    UUIDString(created.ID),
		"locationId": UUIDString(created.LocationID),
		"total":      created.Total,
		"items":      len(rows),
	})
	return toView(created, rows), nil
}

// Get loads an order and its items.
func (s *Service) Get(ctx context.Context, orderID string) (View, error) {
	id, err := ParseUUID(orderID)
	if err != nil {
		return View{}, common.Validation("BAD_REQUEST", "invalid order id")
	}
	o, err := LoadForTenant(ctx, s.Q, id)
	if err != nil {
		return View{}, err
	}
	items, err := s.Q.ListOrderItems(ctx, id)
	if err != nil {
		return View{}, fmt.Errorf("list order items: %w", err)
	}
	return toView(o, items), nil
}

// List returns a page of the tenant's orders and the total match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]View, int64, error) {
	tenantID, err := tenant.UUIDFromContext(ctx)
	if err != nil {
		return nil, 0, common.Validation("TENANT_REQUIRED", err.Error())
	}
	var status pgtype.Text
	if f.Status != "" {
		st, ok := ledger.ParseStatus(f.Status)
		if !ok {
			return nil, 0, common.Validation("BAD_REQUEST", "unknown status filter")
		}
		status = pgtype.Text{String: string(st), Valid: true}
	}
	var locationID pgtype.UUID
	if f.LocationID != "" {
		if locationID, err = ParseUUID(f.LocationID); err != nil {
			return nil, 0, common.Validation("BAD_REQUEST", "invalid location id")
		}
	}
	total, err := s.Q.CountOrders(ctx, dbgen.CountOrdersParams{TenantID: tenantID, Status: status, LocationID: locationID})
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.Q.ListOrders(ctx, dbgen.ListOrdersParams{
		TenantID:    tenantID,
		Status:      status,
		LocationID:  locationID,
		LimitCount:  int32(f.PerPage),
		OffsetCount: int32(common.Offset(f.Page, f.PerPage)),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	out := make([]View, 0, len(rows))
	for _, o := range rows {
		out = append(out, toView(o, nil))
	}
	return out, total, nil
}

// AddItem appends a line to an editable order.
func (s *Service) AddItem(ctx context.Context, orderID string, in ItemInput) (View, error) {
	return s.mutate(ctx, "add_item", orderID, func(ctx context.Context, q dbgen.Querier, o dbgen.Order, tc ledger.TaxContext) (ledger.Delta, error) {
		row, err := q.CreateOrderItem(ctx, itemParams(o.ID, in))
		if err != nil {
			return ledger.Delta{}, fmt.Errorf("create order item: %w", err)
		}
		return ledger.AdditionDelta(LineItemOf(row), tc)
	})
}

// UpdateItemQty sets a line's quantity. A quantity of zero removes the line.
func (s *Service) UpdateItemQty(ctx context.Context, orderID, itemID string, qty int64) (View, error) {
	if qty == 0 {
		return s.RemoveItem(ctx, orderID, itemID)
	}
	if qty < 0 || qty > 1000 {
		return View{}, common.Validation("BAD_REQUEST", "qty must be between 0 and 1000")
	}
	iID, err := ParseUUID(itemID)
	if err != nil {
		return View{}, common.Validation("BAD_REQUEST", "invalid item id")
	}
	return s.mutate(ctx, "update_item", orderID, func(ctx context.Context, q dbgen.Querier, o dbgen.Order, tc ledger.TaxContext) (ledger.Delta, error) {
		row, err := loadItem(ctx, q, o.ID, iID)
		if err != nil {
			return ledger.Delta{}, err
		}
		delta, err := ledger.QuantityDelta(LineItemOf(row), qty, tc)
		if err != nil {
			return ledger.Delta{}, err
		}
		if _, err := q.UpdateOrderItemQty(ctx, dbgen.UpdateOrderItemQtyParams{ID: iID, OrderID: o.ID, Qty: int32(qty)}); err != nil {
			return ledger.Delta{}, fmt.Errorf("update order item: %w", err)
		}
		return delta, nil
	})
}

// RemoveItem deletes a line from an editable order.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID string) (View, error) {
	iID, err := ParseUUID(itemID)
	if err != nil {
		return View{}, common.Validation("BAD_REQUEST", "invalid item id")
	}
	return s.mutate(ctx, "remove_item", orderID, func(ctx context.Context, q dbgen.Querier, o dbgen.Order, tc ledger.TaxContext) (ledger.Delta, error) {
		row, err := loadItem(ctx, q, o.ID, iID)
		if err != nil {
			return ledger.Delta{}, err
		}
		delta, err := ledger.RemovalDelta(LineItemOf(row), tc)
		if err != nil {
			return ledger.Delta{}, err
		}
		if _, err := q.DeleteOrderItem(ctx, dbgen.DeleteOrderItemParams{ID: iID, OrderID: o.ID}); err != nil {
			return ledger.Delta{}, fmt.Errorf("delete order item: %w", err)
		}
		return delta, nil
	})
}

type mutation func(ctx context.Context, q dbgen.Querier, o dbgen.Order, tc ledger.TaxContext) (ledger.Delta, error)

// mutate runs fn and merges its delta into the stored aggregates, writing
// conditioned on the version read at the start of the transaction. A lost
// race rolls everything back and retries from a fresh read.
func (s *Service) mutate(ctx context.Context, op, orderID string, fn mutation) (View, error) {
	ctx, span := otel.Tracer("order.Service").Start(ctx, "OrderService.Mutate")
	defer span.End()
	span.SetAttributes(attribute.String("order.op", op), attribute.String("order.id", orderID))

	result := "error"
	defer func() { obs.Count(obs.OrderMutationsTotal, op, result) }()

	if s == nil || s.Tx == nil {
		return View{}, errors.New("order service not configured")
	}
	id, err := ParseUUID(orderID)
	if err != nil {
		return View{}, common.Validation("BAD_REQUEST", "invalid order id")
	}

	var (
		updated dbgen.Order
		items   []dbgen.OrderItem
		delta   ledger.Delta
	)
	for attempt := 1; ; attempt++ {
		err = s.Tx.InTx(ctx, func(q dbgen.Querier) error {
			o, err := LoadForTenant(ctx, q, id)
			if err != nil {
				return err
			}
			if !ledger.Editable(ledger.Status(o.Status)) {
				return common.Forbidden("ORDER_LOCKED", fmt.Sprintf("items cannot change once an order is %s", o.Status))
			}
			if ledger.AwaitingPayment(ledger.Status(o.Status)) && o.GatewayOrderID.Valid {
				return common.Forbidden("PAYMENT_PENDING", "items cannot change while a gateway payment is open for the order")
			}
			loc, err := q.GetLocation(ctx, o.LocationID)
			if err != nil {
				return fmt.Errorf("load location: %w", err)
			}
			delta, err = fn(ctx, q, o, TaxContextOf(o, loc))
			if err != nil {
				return err
			}
			next, normalized, err := AggregatesOf(o).Apply(delta)
			if err != nil {
				return s.invariant(op, o, err)
			}
			if len(normalized) > 0 {
				s.Logger.Warn().Str("order_id", orderID).Strs("fields", normalized).Str("op", op).
					Msg("aggregate rounding drift normalized to zero")
			}
			n, err := q.UpdateOrderAggregates(ctx, dbgen.UpdateOrderAggregatesParams{
				ID:             o.ID,
				Version:        o.Version,
				Subtotal:       next.Subtotal,
				TaxCgst:        next.Tax.CGST,
				TaxSgst:        next.Tax.SGST,
				TaxIgst:        next.Tax.IGST,
				DiscountAmount: next.DiscountAmount,
				Total:          next.Total,
			})
			if err != nil {
				return fmt.Errorf("update aggregates: %w", err)
			}
			if n == 0 {
				return errVersionConflict
			}
			items, err = q.ListOrderItems(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("list order items: %w", err)
			}
			if err := next.Verify(LineItems(items)); err != nil {
				return s.invariant(op, o, err)
			}
			updated, err = q.GetOrder(ctx, o.ID)
			return err
		})
		if !errors.Is(err, errVersionConflict) {
			break
		}
		obs.Count(obs.OrderVersionConflictsTotal, op)
		if attempt >= s.maxRetries() {
			result = "conflict"
			return View{}, common.Conflict("ORDER_VERSION_CONFLICT", "order was modified concurrently, retry the request")
		}
		s.Logger.Debug().Str("order_id", orderID).Int("attempt", attempt).Msg("order version conflict, retrying")
		select {
		case <-ctx.Done():
			return View{}, ctx.Err()
		case <-time.After(resilience.Backoff(s.retryBase(), attempt, 0.2)):
		}
	}
	if err != nil {
		span.RecordError(err)
		return View{}, err
	}
	result = "ok"
	s.emit(ctx, events.TopicOrderItemsChanged, updated, map[string]any{
		"orderId": orderID,
		"op":      op,
		"delta":   delta,
		"total":   updated.Total,
		"version": updated.Version,
	})
	return toView(updated, items), nil
}

// Transition moves an order along the status state machine.
func (s *Service) Transition(ctx context.Context, orderID string, to ledger.Status) (View, error) {
	ctx, span := otel.Tracer("order.Service").Start(ctx, "OrderService.Transition")
	defer span.End()

	result := "error"
	defer func() { obs.Count(obs.OrderMutationsTotal, "transition", result) }()

	id, err := ParseUUID(orderID)
	if err != nil {
		return View{}, common.Validation("BAD_REQUEST", "invalid order id")
	}
	o, err := LoadForTenant(ctx, s.Q, id)
	if err != nil {
		return View{}, err
	}
	from := ledger.Status(o.Status)
	if !ledger.CanTransition(from, to) {
		result = "rejected"
		return View{}, common.Conflict("INVALID_STATE", fmt.Sprintf("cannot transition from %s to %s", from, to))
	}
	updated, err := s.Q.TransitionOrderStatus(ctx, dbgen.TransitionOrderStatusParams{ToStatus: string(to), ID: id, FromStatus: string(from)})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			result = "conflict"
			return View{}, common.Conflict("INVALID_STATE", "order status changed concurrently")
		}
		span.RecordError(err)
		return View{}, fmt.Errorf("transition order: %w", err)
	}
	result = "ok"
	s.Logger.Info().Str("order_id", orderID).Str("from", string(from)).Str("to", string(to)).Msg("order status changed")
	s.emit(ctx, events.TopicOrderStatusChanged, updated, map[string]any{"orderId": orderID, "from": from, "to": to})
	if to == ledger.StatusCompleted {
		s.emit(ctx, events.TopicOrderCompleted, updated, map[string]any{"orderId": orderID, "total": updated.Total})
	}
	return toView(updated, nil), nil
}

// Getter is the single query LoadForTenant needs.
type Getter interface {
	GetOrder(ctx context.Context, id pgtype.UUID) (dbgen.Order, error)
}

// LoadForTenant reads an order and rejects access from another tenant.
func LoadForTenant(ctx context.Context, q Getter, id pgtype.UUID) (dbgen.Order, error) {
	tenantID, err := tenant.UUIDFromContext(ctx)
	if err != nil {
		return dbgen.Order{}, common.Validation("TENANT_REQUIRED", err.Error())
	}
	o, err := q.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Order{}, common.NotFound("ORDER_NOT_FOUND", "order not found")
		}
		return dbgen.Order{}, fmt.Errorf("load order: %w", err)
	}
	if o.TenantID != tenantID {
		return dbgen.Order{}, common.Forbidden("FORBIDDEN", "order belongs to another tenant")
	}
	return o, nil
}

func loadItem(ctx context.Context, q dbgen.Querier, orderID, itemID pgtype.UUID) (dbgen.OrderItem, error) {
	row, err := q.GetOrderItem(ctx, dbgen.GetOrderItemParams{ID: itemID, OrderID: orderID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.OrderItem{}, common.NotFound("ITEM_NOT_FOUND", "order item not found")
		}
		return dbgen.OrderItem{}, fmt.Errorf("load order item: %w", err)
	}
	return row, nil
}

func itemParams(orderID pgtype.UUID, in ItemInput) dbgen.CreateOrderItemParams {
	var menuItemID pgtype.UUID
	if in.MenuItemID != "" {
		menuItemID, _ = ParseUUID(in.MenuItemID)
	}
	return dbgen.CreateOrderItemParams{
		OrderID:    orderID,
		MenuItemID: menuItemID,
		Name:       strings.TrimSpace(in.Name),
		UnitPrice:  in.UnitPrice,
		Qty:        int32(in.Qty),
		TaxRateBps: int32(in.TaxRateBps),
	}
}

func (s *Service) invariant(op string, o dbgen.Order, err error) error {
	if errors.Is(err, common.ErrInvariantViolation) {
		obs.Count(obs.LedgerInvariantViolationsTotal, op)
		s.Logger.Error().Err(err).Str("order_id", UUIDString(o.ID)).Str("op", op).
			Int64("version", o.Version).Msg("ledger invariant violation")
	}
	return err
}

func (s *Service) emit(ctx context.Context, topic string, o dbgen.Order, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, o.TenantID, o.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("order_id", UUIDString(o.ID)).Msg("emit order event")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) maxRetries() int {
	if s.MaxRetries > 0 {
		return s.MaxRetries
	}
	return defaultMaxRetries
}

func (s *Service) retryBase() time.Duration {
	if s.RetryBase > 0 {
		return s.RetryBase
	}
	return defaultRetryBase
}
