package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/nats-io/nats.go"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
)

// SubjectPrefix namespaces every subject published by the service.
const SubjectPrefix = "resto"

// Publisher is the subset of *nats.Conn used by NATSNotifier.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Envelope is the message body published for each domain event.
type Envelope struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// NATSNotifier publishes events to `resto.<topic>` so the kitchen display and
// ops consumers can follow order progress.
type NATSNotifier struct {
	Conn Publisher
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// Subject returns the subject an event topic is published on.
func Subject(topic string) string {
	return SubjectPrefix + "." + topic
}

// Notify publishes event wrapped in an Envelope.
func (n *NATSNotifier) Notify(_ context.Context, event dbgen.DomainEvent) error {
	if n == nil || n.Conn == nil {
		return nil
	}
	env := Envelope{
		ID:          uuidString(event.ID),
		TenantID:    uuidString(event.TenantID),
		Topic:       event.Topic,
		AggregateID: uuidString(event.AggregateID),
		OccurredAt:  event.OccurredAt.Time,
		Payload:     json.RawMessage(event.Payload),
	}
	if len(env.Payload) == 0 {
		env.Payload = json.RawMessage("{}")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return n.Conn.Publish(Subject(event.Topic), data)
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
