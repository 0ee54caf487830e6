package invoice

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/lock"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/queue"
)

type recordingQueue struct {
	tasks []queue.Task
}

func (r *recordingQueue) Enqueue(_ context.Context, t queue.Task) error {
	r.tasks = append(r.tasks, t)
	return nil
}

func TestSchedulerQueuesOnlyCompletedOrders(t *testing.T) {
	rq := &recordingQueue{}
	s := Scheduler{Queue: rq, MaxAttempts: 4}
	orderID, tenantID := newID(), newID()

	for _, topic := range []string{events.TopicOrderCreated, events.TopicOrderStatusChanged, events.TopicOrderCompleted} {
		require.NoError(t, s.Schedule(context.Background(), dbgen.DomainEvent{Topic: topic, TenantID: tenantID, AggregateID: orderID}))
	}
	require.Len(t, rq.tasks, 1)
	task := rq.tasks[0]
	require.Equal(t, TaskKind, task.Kind)
	require.Equal(t, order.UUIDString(orderID), task.IdempotencyKey)
	require.Equal(t, 4, task.MaxAttempts)

	var payload issueTask
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	require.Equal(t, order.UUIDString(orderID), payload.OrderID)
	require.Equal(t, order.UUIDString(tenantID), payload.TenantID)
}

func newWorker(t *testing.T, f *fixture) Worker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Worker{Svc: f.svc, Locker: lock.Locker{R: client, RetryBackoff: time.Millisecond}, LockTTL: time.Second}
}

func taskFor(t *testing.T, o dbgen.Order) queue.Task {
	t.Helper()
	payload, err := json.Marshal(issueTask{OrderID: order.UUIDString(o.ID), TenantID: order.UUIDString(o.TenantID)})
	require.NoError(t, err)
	return queue.Task{Kind: TaskKind, Payload: payload, Attempt: 1}
}

func TestWorkerIssuesInvoice(t *testing.T) {
	f := newFixture(t)
	w := newWorker(t, f)
	o := f.completed()

	require.NoError(t, w.Handle(context.Background(), taskFor(t, o)))
	require.NoError(t, w.Handle(context.Background(), taskFor(t, o)))
	require.Equal(t, 1, f.db.invoiceCount())
}

func TestWorkerDropsUninvoiceableOrders(t *testing.T) {
	f := newFixture(t)
	w := newWorker(t, f)
	o := f.db.addOrder(f.loc, "MH", "canceled", 0, item("Veg Thali", 10000, 1, 500))

	require.NoError(t, w.Handle(context.Background(), taskFor(t, o)))
	require.NoError(t, w.Handle(context.Background(), queue.Task{Kind: TaskKind, Payload: []byte("not json")}))
	require.Zero(t, f.db.invoiceCount())
}
