package queue_test

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-resto/internal/queue"
)

// memoryStore is an in-process queue.Store for worker and admin tests.
type memoryStore struct {
	mu   sync.Mutex
	dead map[uuid.UUID]queue.DLQEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{dead: map[uuid.UUID]queue.DLQEntry{}}
}

func (m *memoryStore) Bury(_ context.Context, e queue.DLQEntry) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.dead[e.ID] = e
	return e.ID, nil
}

func (m *memoryStore) Dead(_ context.Context, id uuid.UUID) (queue.DLQEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.dead[id]
	if !ok {
		return queue.DLQEntry{}, queue.ErrDeadTaskNotFound
	}
	return e, nil
}

func (m *memoryStore) ListDead(_ context.Context, kind string, limit, offset int) ([]queue.DLQEntry, error) {
	matching := m.matching(kind)
	slices.SortFunc(matching, func(a, b queue.DLQEntry) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if offset >= len(matching) {
		return nil, nil
	}
	if limit <= 0 {
		limit = len(matching)
	}
	return matching[offset:min(offset+limit, len(matching))], nil
}

func (m *memoryStore) CountDead(_ context.Context, kind string) (int64, error) {
	return int64(len(m.matching(kind))), nil
}

func (m *memoryStore) Discard(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dead, id)
	return nil
}

func (m *memoryStore) matching(kind string) []queue.DLQEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []queue.DLQEntry
	for _, e := range m.dead {
		if cmp.Or(kind, e.Kind) == e.Kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *memoryStore) snapshot() map[uuid.UUID]queue.DLQEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.dead)
}
