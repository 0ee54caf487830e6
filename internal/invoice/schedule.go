package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/lock"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/queue"
)

// TaskKind is the queue consumed by the invoice worker.
const TaskKind = "invoice-issue"

type issueTask struct {
	OrderID  string `json:"orderId"`
	TenantID string `json:"tenantId"`
}

// Enqueuer is the part of queue.Enqueuer the scheduler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Scheduler queues invoice issuance when an order completes.
type Scheduler struct {
	Queue       Enqueuer
	MaxAttempts int
}

// Schedule implements events.Scheduler.
func (s Scheduler) Schedule(ctx context.Context, ev dbgen.DomainEvent) error {
	if ev.Topic != events.TopicOrderCompleted || s.Queue == nil {
		return nil
	}
	orderID := order.UUIDString(ev.AggregateID)
	payload, err := json.Marshal(issueTask{OrderID: orderID, TenantID: order.UUIDString(ev.TenantID)})
	if err != nil {
		return err
	}
	return s.Queue.Enqueue(ctx, queue.Task{
		Kind:           TaskKind,
		Payload:        payload,
		IdempotencyKey: orderID,
		MaxAttempts:    s.MaxAttempts,
	})
}

// Worker handles invoice-issue tasks, one order at a time across processes.
type Worker struct {
	Svc     *Service
	Locker  lock.Locker
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// Handle issues the invoice named by the task. Orders that are no longer
// invoiceable are dropped rather than retried.
func (w Worker) Handle(ctx context.Context, task queue.Task) error {
	var in issueTask
	if err := json.Unmarshal(task.Payload, &in); err != nil {
		w.Logger.Error().Err(err).Msg("invoice task payload invalid")
		return nil
	}
	id, err := order.ParseUUID(in.OrderID)
	if err != nil {
		w.Logger.Error().Str("order_id", in.OrderID).Msg("invoice task order id invalid")
		return nil
	}
	return w.Locker.WithLock(ctx, w.Locker.Key("invoice", in.OrderID), w.LockTTL, func(ctx context.Context) error {
		data, err := w.Svc.Issue(ctx, id)
		switch {
		case errors.Is(err, common.ErrForbidden), errors.Is(err, common.ErrNotFound):
			w.Logger.Warn().Err(err).Str("order_id", in.OrderID).Int("attempt", task.Attempt).Msg("invoice task dropped")
			return nil
		case err != nil:
			return fmt.Errorf("issue invoice %s: %w", in.OrderID, err)
		}
		w.Logger.Debug().Str("order_id", in.OrderID).Str("invoice_number", data.Number).Msg("invoice task done")
		return nil
	})
}
