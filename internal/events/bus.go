// Package events records domain events in the domain_events table and hands
// each one to background schedulers and live notifiers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

var (
	ErrUnknownTopic    = errors.New("events: unknown topic")
	ErrMissingIdentity = errors.New("events: tenant and aggregate ids are required")
)

// EventStore is satisfied by *dbgen.Queries.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error)
}

// Scheduler turns a stored event into background work.
type Scheduler interface {
	Schedule(ctx context.Context, event dbgen.DomainEvent) error
}

// Notifier forwards a stored event to live consumers.
type Notifier interface {
	Notify(ctx context.Context, event dbgen.DomainEvent) error
}

type Bus struct {
	Store      EventStore
	Schedulers []Scheduler
	Notifiers  []Notifier
}

// Emit stores the event and then dispatches it. The stored event is returned
// even when dispatch fails; dispatch errors are joined.
func (b *Bus) Emit(ctx context.Context, topic string, tenantID, aggregateID pgtype.UUID, payload any) (dbgen.DomainEvent, error) {
	switch {
	case b == nil || b.Store == nil:
		return dbgen.DomainEvent{}, errors.New("events: store not configured")
	case !Known(topic):
		return dbgen.DomainEvent{}, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	case !tenantID.Valid || !aggregateID.Valid:
		return dbgen.DomainEvent{}, ErrMissingIdentity
	}

	body, err := marshalPayload(payload)
	if err != nil {
		return dbgen.DomainEvent{}, fmt.Errorf("events: payload for %s: %w", topic, err)
	}
	ev, err := b.Store.InsertDomainEvent(ctx, dbgen.InsertDomainEventParams{
		TenantID:    tenantID,
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     body,
	})
	if err != nil {
		return dbgen.DomainEvent{}, fmt.Errorf("events: store %s: %w", topic, err)
	}
	return ev, b.dispatch(ctx, ev)
}

func (b *Bus) dispatch(ctx context.Context, ev dbgen.DomainEvent) error {
	var errs []error
	for _, s := range b.Schedulers {
		if s != nil {
			if err := s.Schedule(ctx, ev); err != nil {
				errs = append(errs, fmt.Errorf("schedule %s: %w", ev.Topic, err))
			}
		}
	}
	for _, n := range b.Notifiers {
		if n != nil {
			if err := n.Notify(ctx, ev); err != nil {
				errs = append(errs, fmt.Errorf("notify %s: %w", ev.Topic, err))
			}
		}
	}
	return errors.Join(errs...)
}

// marshalPayload accepts raw JSON bytes or any marshalable value. Empty
// payloads are stored as {}.
func marshalPayload(payload any) ([]byte, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		return json.Marshal(v)
	}
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), raw...), nil
}
