package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDeadTaskNotFound is returned by Store.Dead for unknown ids.
var ErrDeadTaskNotFound = errors.New("queue: dead task not found")

// Store persists tasks that exhausted their attempts (the dead-letter table).
// An empty kind matches every kind.
type Store interface {
	Bury(ctx context.Context, entry DLQEntry) (uuid.UUID, error)
	Dead(ctx context.Context, id uuid.UUID) (DLQEntry, error)
	ListDead(ctx context.Context, kind string, limit, offset int) ([]DLQEntry, error)
	CountDead(ctx context.Context, kind string) (int64, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// DLQEntry is one dead task. Payload holds the encoded task message.
type DLQEntry struct {
	ID             uuid.UUID
	Kind           string
	IdempotencyKey string
	Payload        []byte
	Attempts       int
	LastError      string
	CreatedAt      time.Time
}

const maxDeadPage = 500

// NewStore returns a Store over the queue_dlq table.
func NewStore(pool *pgxpool.Pool) Store {
	return pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const deadColumns = `id, kind, idem_key, payload, attempts, last_error, created_at`

func (s pgStore) Bury(ctx context.Context, e DLQEntry) (uuid.UUID, error) {
	lastErr := pgtype.Text{String: e.LastError, Valid: e.LastError != ""}
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO queue_dlq (kind, idem_key, payload, attempts, last_error) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.Kind, e.IdempotencyKey, e.Payload, e.Attempts, lastErr,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert dead task: %w", err)
	}
	return id, nil
}

func (s pgStore) Dead(ctx context.Context, id uuid.UUID) (DLQEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+deadColumns+` FROM queue_dlq WHERE id = $1`, id)
	if err != nil {
		return DLQEntry{}, err
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanDead)
	if errors.Is(err, pgx.ErrNoRows) {
		return DLQEntry{}, ErrDeadTaskNotFound
	}
	return entry, err
}

func (s pgStore) ListDead(ctx context.Context, kind string, limit, offset int) ([]DLQEntry, error) {
	limit = min(max(limit, 1), maxDeadPage)
	offset = max(offset, 0)
	rows, err := s.pool.Query(ctx,
		`SELECT `+deadColumns+` FROM queue_dlq WHERE ($1 = '' OR kind = $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		kind, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanDead)
}

func (s pgStore) CountDead(ctx context.Context, kind string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM queue_dlq WHERE ($1 = '' OR kind = $1)`, kind).Scan(&n)
	return n, err
}

func (s pgStore) Discard(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM queue_dlq WHERE id = $1`, id)
	return err
}

func scanDead(row pgx.CollectableRow) (DLQEntry, error) {
	var (
		e       DLQEntry
		lastErr pgtype.Text
	)
	err := row.Scan(&e.ID, &e.Kind, &e.IdempotencyKey, &e.Payload, &e.Attempts, &lastErr, &e.CreatedAt)
	e.LastError = lastErr.String
	return e, err
}
