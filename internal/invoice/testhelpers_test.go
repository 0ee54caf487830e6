package invoice

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/gst"
)

type seqKey struct {
	location pgtype.UUID
	year     int32
}

type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	locations map[pgtype.UUID]dbgen.Location
	orders    map[pgtype.UUID]dbgen.Order
	items     map[pgtype.UUID][]dbgen.OrderItem
	sequences map[seqKey]int32
	invoices  map[pgtype.UUID]dbgen.Invoice
	events    []dbgen.DomainEvent
}

func newMemDB() *memDB {
	return &memDB{
		locations: map[pgtype.UUID]dbgen.Location{},
		orders:    map[pgtype.UUID]dbgen.Order{},
		items:     map[pgtype.UUID][]dbgen.OrderItem{},
		sequences: map[seqKey]int32{},
		invoices:  map[pgtype.UUID]dbgen.Invoice{},
	}
}

func newID() pgtype.UUID { return pgtype.UUID{Bytes: uuid.New(), Valid: true} }

func (m *memDB) InTx(ctx context.Context, fn func(q dbgen.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	seqs, invs := maps.Clone(m.sequences), maps.Clone(m.invoices)
	m.mu.Unlock()
	if err := fn(&memQ{db: m}); err != nil {
		m.mu.Lock()
		m.sequences, m.invoices = seqs, invs
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memDB) addLocation(tenantID pgtype.UUID, prefix, state string) dbgen.Location {
	loc := dbgen.Location{
		ID:            newID(),
		TenantID:      tenantID,
		Name:          "Bandra Kitchen",
		InvoicePrefix: prefix,
		StateCode:     state,
		Gstin:         pgtype.Text{String: "27AAAAA0000A1Z5", Valid: true},
		Address:       "Hill Road, Mumbai",
	}
	m.locations[loc.ID] = loc
	return loc
}

// addOrder stores an order whose aggregates are consistent with items.
func (m *memDB) addOrder(loc dbgen.Location, customerState, status string, discount int64, items ...dbgen.OrderItem) dbgen.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := dbgen.Order{
		ID:             newID(),
		TenantID:       loc.TenantID,
		LocationID:     loc.ID,
		CustomerName:   "Asha",
		CustomerState:  customerState,
		Status:         status,
		DiscountAmount: discount,
		Version:        1,
	}
	var sub, cgst, sgst, igst int64
	for i := range items {
		items[i].ID = newID()
		items[i].OrderID = o.ID
		taxable := items[i].UnitPrice * int64(items[i].Qty)
		tax, err := gst.ComputeItemTax(taxable, int64(items[i].TaxRateBps), loc.StateCode, customerState)
		if err != nil {
			panic(err)
		}
		sub += taxable
		cgst += tax.CGST
		sgst += tax.SGST
		igst += tax.IGST
	}
	o.Subtotal, o.TaxCgst, o.TaxSgst, o.TaxIgst = sub, cgst, sgst, igst
	o.Total = sub + cgst + sgst + igst - discount
	m.orders[o.ID] = o
	m.items[o.ID] = items
	return o
}

func (m *memDB) setStatus(id pgtype.UUID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Status = status
	m.orders[id] = o
}

func (m *memDB) invoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
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

func (q *memQ) GetLocation(_ context.Context, id pgtype.UUID) (dbgen.Location, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	loc, ok := q.db.locations[id]
	if !ok {
		return dbgen.Location{}, pgx.ErrNoRows
	}
	return loc, nil
}

func (q *memQ) ListOrderItems(_ context.Context, orderID pgtype.UUID) ([]dbgen.OrderItem, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	return append([]dbgen.OrderItem(nil), q.db.items[orderID]...), nil
}

func (q *memQ) NextInvoiceSequence(_ context.Context, arg dbgen.NextInvoiceSequenceParams) (int32, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	k := seqKey{arg.LocationID, arg.FiscalYear}
	q.db.sequences[k]++
	return q.db.sequences[k], nil
}

func (q *memQ) InsertInvoice(_ context.Context, arg dbgen.InsertInvoiceParams) (dbgen.Invoice, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	if _, dup := q.db.invoices[arg.OrderID]; dup {
		return dbgen.Invoice{}, pgx.ErrNoRows
	}
	inv := dbgen.Invoice{
		ID:            newID(),
		TenantID:      arg.TenantID,
		OrderID:       arg.OrderID,
		LocationID:    arg.LocationID,
		InvoiceNumber: arg.InvoiceNumber,
		FiscalYear:    arg.FiscalYear,
		IssuedAt:      arg.IssuedAt,
		Payload:       arg.Payload,
	}
	q.db.invoices[arg.OrderID] = inv
	return inv, nil
}

func (q *memQ) GetInvoiceByOrderID(_ context.Context, orderID pgtype.UUID) (dbgen.Invoice, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	inv, ok := q.db.invoices[orderID]
	if !ok {
		return dbgen.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (q *memQ) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	ev := dbgen.DomainEvent{ID: newID(), TenantID: arg.TenantID, Topic: arg.Topic, AggregateID: arg.AggregateID, Payload: arg.Payload}
	q.db.events = append(q.db.events, ev)
	return ev, nil
}
