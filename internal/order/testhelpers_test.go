package order

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// memDB is an in-memory stand-in for Postgres. Transactions are serialized
// unless interleave is set. Either way a failed transaction replays its undo
// log, items it created stay invisible to other transactions until commit,
// and an order row written in a transaction stays locked until it ends.
type memDB struct {
	txMu  sync.Mutex
	rowMu sync.Mutex
	mu    sync.Mutex

	locations   map[pgtype.UUID]dbgen.Location
	orders      map[pgtype.UUID]dbgen.Order
	items       []dbgen.OrderItem
	pending     map[pgtype.UUID]*memTx
	coupons     map[pgtype.UUID]dbgen.Coupon
	redemptions map[[2]pgtype.UUID]bool
	events      []dbgen.DomainEvent

	// interleave lets transactions run side by side.
	interleave bool
	// afterRead runs after every in-transaction order read.
	afterRead func()

	// injectConflicts makes the next n aggregate updates miss their version.
	injectConflicts int
	updateCalls     int
}

type memTx struct {
	undo   []func()
	locked bool
}

func newMemDB() *memDB {
	return &memDB{
		locations:   map[pgtype.UUID]dbgen.Location{},
		orders:      map[pgtype.UUID]dbgen.Order{},
		pending:     map[pgtype.UUID]*memTx{},
		coupons:     map[pgtype.UUID]dbgen.Coupon{},
		redemptions: map[[2]pgtype.UUID]bool{},
	}
}

func newID() pgtype.UUID { return pgtype.UUID{Bytes: uuid.New(), Valid: true} }

func now() pgtype.Timestamptz { return pgtype.Timestamptz{Time: time.Now(), Valid: true} }

func (m *memDB) InTx(ctx context.Context, fn func(q dbgen.Querier) error) error {
	if !m.interleave {
		m.txMu.Lock()
		defer m.txMu.Unlock()
	}
	tx := &memTx{}
	err := fn(&memQ{db: m, tx: tx})
	m.mu.Lock()
	if err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}
	for id, owner := range m.pending {
		if owner == tx {
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()
	if tx.locked {
		m.rowMu.Unlock()
	}
	return err
}

func (m *memDB) addLocation(tenantID pgtype.UUID, state string) dbgen.Location {
	loc := dbgen.Location{ID: newID(), TenantID: tenantID, Name: "Bandra", InvoicePrefix: "BDR", StateCode: state}
	m.locations[loc.ID] = loc
	return loc
}

func (m *memDB) order(id string) dbgen.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	parsed, _ := ParseUUID(id)
	return m.orders[parsed]
}

func (m *memDB) itemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *memDB) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Topic)
	}
	return out
}

// memQ implements the queries the order service uses; anything else panics
// through the nil embedded interface.
type memQ struct {
	dbgen.Querier
	db *memDB
	tx *memTx
}

// onRollback records an undo step. Callers hold db.mu.
func (q *memQ) onRollback(fn func()) {
	if q.tx != nil {
		q.tx.undo = append(q.tx.undo, fn)
	}
}

// lockRow blocks until no other open transaction has written an order.
func (q *memQ) lockRow() {
	if q.tx == nil || q.tx.locked {
		return
	}
	q.db.rowMu.Lock()
	q.tx.locked = true
}

func (q *memQ) visible(it dbgen.OrderItem) bool {
	owner, ok := q.db.pending[it.ID]
	return !ok || owner == q.tx
}

func (q *memQ) GetLocation(_ context.Context, id pgtype.UUID) (dbgen.Location, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	loc, ok := q.db.locations[id]
	if !ok {
		return dbgen.Location{}, pgx.ErrNoRows
	}
	return loc, nil
}

func (q *memQ) GetLocationForTenant(ctx context.Context, arg dbgen.GetLocationForTenantParams) (dbgen.Location, error) {
	loc, err := q.GetLocation(ctx, arg.ID)
	if err != nil || loc.TenantID != arg.TenantID {
		return dbgen.Location{}, pgx.ErrNoRows
	}
	return loc, nil
}

func (q *memQ) CreateOrder(_ context.Context, arg dbgen.CreateOrderParams) (dbgen.Order, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	o := dbgen.Order{
		ID:             newID(),
		TenantID:       arg.TenantID,
		LocationID:     arg.LocationID,
		CustomerName:   arg.CustomerName,
		CustomerPhone:  arg.CustomerPhone,
		CustomerState:  arg.CustomerState,
		CustomerGstin:  arg.CustomerGstin,
		Status:         "placed",
		Subtotal:       arg.Subtotal,
		TaxCgst:        arg.TaxCgst,
		TaxSgst:        arg.TaxSgst,
		TaxIgst:        arg.TaxIgst,
		DiscountAmount: arg.DiscountAmount,
		Total:          arg.Total,
		CouponID:       arg.CouponID,
		Version:        1,
		CreatedAt:      now(),
		UpdatedAt:      now(),
	}
	q.db.orders[o.ID] = o
	q.onRollback(func() { delete(q.db.orders, o.ID) })
	return o, nil
}

func (q *memQ) GetOrder(_ context.Context, id pgtype.UUID) (dbgen.Order, error) {
	q.db.mu.Lock()
	o, ok := q.db.orders[id]
	q.db.mu.Unlock()
	if !ok {
		return dbgen.Order{}, pgx.ErrNoRows
	}
	if q.tx != nil && q.db.afterRead != nil {
		q.db.afterRead()
	}
	return o, nil
}

func (q *memQ) CountOrders(_ context.Context, arg dbgen.CountOrdersParams) (int64, error) {
	rows, _ := q.ListOrders(context.Background(), dbgen.ListOrdersParams{TenantID: arg.TenantID, Status: arg.Status, LocationID: arg.LocationID, LimitCount: 1 << 30})
	return int64(len(rows)), nil
}

func (q *memQ) ListOrders(_ context.Context, arg dbgen.ListOrdersParams) ([]dbgen.Order, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	var out []dbgen.Order
	for _, o := range q.db.orders {
		if o.TenantID != arg.TenantID {
			continue
		}
		if arg.Status.Valid && o.Status != arg.Status.String {
			continue
		}
		if arg.LocationID.Valid && o.LocationID != arg.LocationID {
			continue
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b dbgen.Order) int { return b.CreatedAt.Time.Compare(a.CreatedAt.Time) })
	start := min(int(arg.OffsetCount), len(out))
	end := min(start+int(arg.LimitCount), len(out))
	return out[start:end], nil
}

func (q *memQ) UpdateOrderAggregates(_ context.Context, arg dbgen.UpdateOrderAggregatesParams) (int64, error) {
	q.lockRow()
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	q.db.updateCalls++
	if q.db.injectConflicts > 0 {
		q.db.injectConflicts--
		return 0, nil
	}
	o, ok := q.db.orders[arg.ID]
	if !ok || o.Version != arg.Version {
		return 0, nil
	}
	o.Subtotal, o.TaxCgst, o.TaxSgst, o.TaxIgst = arg.Subtotal, arg.TaxCgst, arg.TaxSgst, arg.TaxIgst
	o.DiscountAmount, o.Total = arg.DiscountAmount, arg.Total
	prev := o
	o.Version++
	o.UpdatedAt = now()
	q.db.orders[arg.ID] = o
	q.onRollback(func() { q.db.orders[arg.ID] = prev })
	return 1, nil
}

func (q *memQ) TransitionOrderStatus(_ context.Context, arg dbgen.TransitionOrderStatusParams) (dbgen.Order, error) {
	q.lockRow()
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	o, ok := q.db.orders[arg.ID]
	if !ok || o.Status != arg.FromStatus {
		return dbgen.Order{}, pgx.ErrNoRows
	}
	prev := o
	q.onRollback(func() { q.db.orders[arg.ID] = prev })
	o.Status = arg.ToStatus
	o.Version++
	if arg.ToStatus == "completed" {
		o.CompletedAt = now()
	}
	q.db.orders[arg.ID] = o
	return o, nil
}

func (q *memQ) CreateOrderItem(_ context.Context, arg dbgen.CreateOrderItemParams) (dbgen.OrderItem, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	it := dbgen.OrderItem{
		ID:         newID(),
		OrderID:    arg.OrderID,
		MenuItemID: arg.MenuItemID,
		Name:       arg.Name,
		UnitPrice:  arg.UnitPrice,
		Qty:        arg.Qty,
		TaxRateBps: arg.TaxRateBps,
		CreatedAt:  now(),
	}
	q.db.items = append(q.db.items, it)
	if q.tx != nil {
		q.db.pending[it.ID] = q.tx
	}
	q.onRollback(func() {
		q.db.items = slices.DeleteFunc(q.db.items, func(x dbgen.OrderItem) bool { return x.ID == it.ID })
	})
	return it, nil
}

func (q *memQ) ListOrderItems(_ context.Context, orderID pgtype.UUID) ([]dbgen.OrderItem, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	var out []dbgen.OrderItem
	for _, it := range q.db.items {
		if it.OrderID == orderID && q.visible(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (q *memQ) GetOrderItem(_ context.Context, arg dbgen.GetOrderItemParams) (dbgen.OrderItem, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	for _, it := range q.db.items {
		if it.ID == arg.ID && it.OrderID == arg.OrderID && q.visible(it) {
			return it, nil
		}
	}
	return dbgen.OrderItem{}, pgx.ErrNoRows
}

func (q *memQ) UpdateOrderItemQty(_ context.Context, arg dbgen.UpdateOrderItemQtyParams) (dbgen.OrderItem, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	for i, it := range q.db.items {
		if it.ID == arg.ID && it.OrderID == arg.OrderID {
			q.onRollback(func() { q.db.setQty(it.ID, it.Qty) })
			q.db.items[i].Qty = arg.Qty
			return q.db.items[i], nil
		}
	}
	return dbgen.OrderItem{}, pgx.ErrNoRows
}

func (q *memQ) DeleteOrderItem(_ context.Context, arg dbgen.DeleteOrderItemParams) (int64, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	before := len(q.db.items)
	var removed []dbgen.OrderItem
	q.db.items = slices.DeleteFunc(q.db.items, func(it dbgen.OrderItem) bool {
		if it.ID == arg.ID && it.OrderID == arg.OrderID {
			removed = append(removed, it)
			return true
		}
		return false
	})
	q.onRollback(func() { q.db.items = append(q.db.items, removed...) })
	return int64(before - len(q.db.items)), nil
}

func (m *memDB) setQty(id pgtype.UUID, qty int32) {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Qty = qty
		}
	}
}

func (q *memQ) GetCouponByCode(_ context.Context, arg dbgen.GetCouponByCodeParams) (dbgen.Coupon, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	for _, c := range q.db.coupons {
		if c.TenantID == arg.TenantID && c.Code == arg.Code {
			return c, nil
		}
	}
	return dbgen.Coupon{}, pgx.ErrNoRows
}

func (q *memQ) IncrementCouponUsage(_ context.Context, id pgtype.UUID) (int64, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	c, ok := q.db.coupons[id]
	if !ok || !c.IsActive || (c.UsageLimit.Valid && c.UsedCount >= c.UsageLimit.Int32) {
		return 0, nil
	}
	prev := c
	c.UsedCount++
	q.db.coupons[id] = c
	q.onRollback(func() { q.db.coupons[id] = prev })
	return 1, nil
}

func (q *memQ) InsertCouponRedemption(_ context.Context, arg dbgen.InsertCouponRedemptionParams) (dbgen.CouponRedemption, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	key := [2]pgtype.UUID{arg.CouponID, arg.OrderID}
	if q.db.redemptions[key] {
		return dbgen.CouponRedemption{}, &pgconn.PgError{Code: "23505"}
	}
	q.db.redemptions[key] = true
	q.onRollback(func() { delete(q.db.redemptions, key) })
	return dbgen.CouponRedemption{ID: newID(), CouponID: arg.CouponID, OrderID: arg.OrderID, DiscountAmount: arg.DiscountAmount}, nil
}

func (q *memQ) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	ev := dbgen.DomainEvent{ID: newID(), TenantID: arg.TenantID, Topic: arg.Topic, AggregateID: arg.AggregateID, Payload: arg.Payload, OccurredAt: now()}
	q.db.events = append(q.db.events, ev)
	return ev, nil
}
