package payment

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// memDB mimics the unique indexes on payment_events. Transactions are
// serialized, which is what a blocked conflicting insert amounts to.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	orders   map[pgtype.UUID]dbgen.Order
	payments map[string]dbgen.PaymentEvent
	eventIDs map[string]bool
	domain   []dbgen.DomainEvent

	acceptCalls int
}

func newMemDB() *memDB {
	return &memDB{
		orders:   map[pgtype.UUID]dbgen.Order{},
		payments: map[string]dbgen.PaymentEvent{},
		eventIDs: map[string]bool{},
	}
}

func newID() pgtype.UUID { return pgtype.UUID{Bytes: uuid.New(), Valid: true} }

func (m *memDB) InTx(ctx context.Context, fn func(q dbgen.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	orders, payments, eventIDs := maps.Clone(m.orders), maps.Clone(m.payments), maps.Clone(m.eventIDs)
	m.mu.Unlock()
	if err := fn(&memQ{db: m}); err != nil {
		m.mu.Lock()
		m.orders, m.payments, m.eventIDs = orders, payments, eventIDs
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memDB) addOrder(tenantID pgtype.UUID, total int64, gatewayOrderID string) dbgen.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := dbgen.Order{
		ID:       newID(),
		TenantID: tenantID,
		Status:   "placed",
		Subtotal: total,
		Total:    total,
		Version:  1,
	}
	if gatewayOrderID != "" {
		o.GatewayOrderID = pgtype.Text{String: gatewayOrderID, Valid: true}
	}
	m.orders[o.ID] = o
	return o
}

func (m *memDB) order(id pgtype.UUID) dbgen.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memDB) paymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

func (m *memDB) payment(gatewayPaymentID string) dbgen.PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[gatewayPaymentID]
}

func (m *memDB) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.domain))
	for _, ev := range m.domain {
		out = append(out, ev.Topic)
	}
	return out
}

type memQ struct {
	dbgen.Querier
	db *memDB
}

func (q *memQ) GetOrder(_ context.Context, id pgtype.UUID) (dbgen.Order, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	o, ok := q.db.orders[id]
	if !ok {
		return dbgen.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (q *memQ) GetOrderByGatewayOrderID(_ context.Context, gatewayOrderID pgtype.Text) (dbgen.Order, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	for _, o := range q.db.orders {
		if o.GatewayOrderID == gatewayOrderID {
			return o, nil
		}
	}
	return dbgen.Order{}, pgx.ErrNoRows
}

func (q *memQ) SetOrderGatewayOrderID(_ context.Context, arg dbgen.SetOrderGatewayOrderIDParams) (dbgen.Order, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	o, ok := q.db.orders[arg.ID]
	if !ok || o.Status != "placed" || o.GatewayOrderID.Valid {
		return dbgen.Order{}, pgx.ErrNoRows
	}
	o.GatewayOrderID = arg.GatewayOrderID
	q.db.orders[o.ID] = o
	return o, nil
}

func (q *memQ) AcceptPaidOrder(_ context.Context, arg dbgen.AcceptPaidOrderParams) (int64, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	q.db.acceptCalls++
	o, ok := q.db.orders[arg.ID]
	if !ok || o.Status != "placed" {
		return 0, nil
	}
	o.Status = "accepted"
	o.GatewayPaymentID = arg.GatewayPaymentID
	o.AcceptedAt = pgtype.Timestamptz{Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Valid: true}
	o.Version++
	q.db.orders[o.ID] = o
	return 1, nil
}

func (q *memQ) InsertPaymentEvent(_ context.Context, arg dbgen.InsertPaymentEventParams) (dbgen.PaymentEvent, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	if _, dup := q.db.payments[arg.GatewayPaymentID]; dup {
		return dbgen.PaymentEvent{}, pgx.ErrNoRows
	}
	if arg.EventID.Valid {
		if q.db.eventIDs[arg.EventID.String] {
			return dbgen.PaymentEvent{}, pgx.ErrNoRows
		}
		q.db.eventIDs[arg.EventID.String] = true
	}
	ev := dbgen.PaymentEvent{
		ID:               newID(),
		TenantID:         arg.TenantID,
		OrderID:          arg.OrderID,
		GatewayPaymentID: arg.GatewayPaymentID,
		GatewayOrderID:   arg.GatewayOrderID,
		EventID:          arg.EventID,
		EventType:        arg.EventType,
		Source:           arg.Source,
		SignatureValid:   arg.SignatureValid,
		Amount:           arg.Amount,
		Outcome:          "pending",
		Payload:          arg.Payload,
	}
	q.db.payments[arg.GatewayPaymentID] = ev
	return ev, nil
}

func (q *memQ) GetPaymentEventByGatewayPaymentIDForUpdate(_ context.Context, gatewayPaymentID string) (dbgen.PaymentEvent, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	ev, ok := q.db.payments[gatewayPaymentID]
	if !ok {
		return dbgen.PaymentEvent{}, pgx.ErrNoRows
	}
	return ev, nil
}

func (q *memQ) MarkPaymentEventApplied(_ context.Context, arg dbgen.MarkPaymentEventAppliedParams) error {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	for key, ev := range q.db.payments {
		if ev.ID == arg.ID {
			ev.Outcome = arg.Outcome
			ev.OrderID = arg.OrderID
			ev.TenantID = arg.TenantID
			ev.AppliedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			q.db.payments[key] = ev
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (q *memQ) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	ev := dbgen.DomainEvent{ID: newID(), TenantID: arg.TenantID, Topic: arg.Topic, AggregateID: arg.AggregateID, Payload: arg.Payload}
	q.db.domain = append(q.db.domain, ev)
	return ev, nil
}
