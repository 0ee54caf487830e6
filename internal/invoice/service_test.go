package invoice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/tenant"
)

type fixture struct {
	db       *memDB
	svc      *Service
	tenantID pgtype.UUID
	loc      dbgen.Location
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := newMemDB()
	q := &memQ{db: m}
	tenantID := newID()
	return &fixture{
		db: m,
		svc: &Service{
			Q:      q,
			Tx:     m,
			Events: &events.Bus{Store: q},
			Zone:   ist,
			Now:    func() time.Time { return issuedAt },
		},
		tenantID: tenantID,
		loc:      m.addLocation(tenantID, "BDR", "MH"),
		ctx:      tenant.WithTenant(context.Background(), order.UUIDString(tenantID)),
	}
}

func (f *fixture) completed() dbgen.Order {
	return f.db.addOrder(f.loc, "MH", "completed", 0, item("Veg Thali", 10000, 1, 500))
}

func TestIssueAssignsSequentialNumbersPerLocation(t *testing.T) {
	f := newFixture(t)
	a, b := f.completed(), f.completed()

	first, err := f.svc.Issue(context.Background(), a.ID)
	require.NoError(t, err)
	second, err := f.svc.Issue(context.Background(), b.ID)
	require.NoError(t, err)

	require.Equal(t, "BDR-2025-00001", first.Number)
	require.Equal(t, "BDR-2025-00002", second.Number)
	require.Equal(t, 2025, first.FiscalYear)

	other := f.db.addLocation(f.tenantID, "AND", "MH")
	c := f.db.addOrder(other, "MH", "completed", 0, item("Chai", 2000, 2, 500))
	third, err := f.svc.Issue(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, "AND-2025-00001", third.Number)
}

func TestIssueIsIdempotent(t *testing.T) {
	f := newFixture(t)
	o := f.completed()

	first, err := f.svc.Issue(context.Background(), o.ID)
	require.NoError(t, err)
	f.svc.Now = func() time.Time { return issuedAt.Add(48 * time.Hour) }
	again, err := f.svc.Issue(context.Background(), o.ID)
	require.NoError(t, err)

	require.Equal(t, first, again)
	require.Equal(t, 1, f.db.invoiceCount())
	require.Len(t, f.db.events, 1)
	require.Equal(t, events.TopicInvoiceIssued, f.db.events[0].Topic)
}

func TestConcurrentIssueConsumesOneNumber(t *testing.T) {
	f := newFixture(t)
	o := f.completed()

	const n = 8
	numbers := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := f.svc.Issue(context.Background(), o.ID)
			if err != nil {
				t.Errorf("issue: %v", err)
				return
			}
			numbers[i] = data.Number
		}(i)
	}
	wg.Wait()
	for _, got := range numbers {
		require.Equal(t, "BDR-2025-00001", got)
	}

	next, err := f.svc.Issue(context.Background(), f.completed().ID)
	require.NoError(t, err)
	require.Equal(t, "BDR-2025-00002", next.Number)
}

func TestIssueRejectsOpenOrderWithoutConsumingSequence(t *testing.T) {
	f := newFixture(t)
	o := f.db.addOrder(f.loc, "MH", "served", 0, item("Veg Thali", 10000, 1, 500))

	_, err := f.svc.Issue(context.Background(), o.ID)
	require.ErrorIs(t, err, common.ErrForbidden)
	require.Zero(t, f.db.invoiceCount())

	f.db.setStatus(o.ID, "completed")
	data, err := f.svc.Issue(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, "BDR-2025-00001", data.Number)
}

func TestIssueKeepsInvoiceAfterRefund(t *testing.T) {
	f := newFixture(t)
	o := f.completed()
	first, err := f.svc.Issue(context.Background(), o.ID)
	require.NoError(t, err)

	f.db.setStatus(o.ID, "refunded")
	again, err := f.svc.Get(f.ctx, order.UUIDString(o.ID))
	require.NoError(t, err)
	require.Equal(t, first.Number, again.Number)
}

func TestGetScopesByTenant(t *testing.T) {
	f := newFixture(t)
	foreign := f.db.addLocation(newID(), "XYZ", "KA")
	o := f.db.addOrder(foreign, "KA", "completed", 0, item("Idli", 6000, 1, 500))

	_, err := f.svc.Get(f.ctx, order.UUIDString(o.ID))
	require.ErrorIs(t, err, common.ErrForbidden)
	require.Zero(t, f.db.invoiceCount())
}

func TestIssueUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Issue(context.Background(), newID())
	require.ErrorIs(t, err, common.ErrNotFound)
}
