package queue

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/common"
)

// AdminHandler exposes operator endpoints for inspecting and replaying
// dead-lettered tasks such as failed invoice issuance.
type AdminHandler struct {
	Store             Store
	Queue             Enqueuer
	PageSize          int
	Logger            zerolog.Logger
	VisibilityTimeout time.Duration
}

type dlqItem struct {
	ID             uuid.UUID   `json:"id"`
	Kind           string      `json:"kind"`
	IdempotencyKey string      `json:"idempotencyKey"`
	Attempts       int         `json:"attempts"`
	LastError      string      `json:"lastError,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	Message        taskMessage `json:"message"`
}

type replayRequest struct {
	IDs   []string `json:"ids" validate:"omitempty,max=500,dive,uuid"`
	Kind  string   `json:"kind" validate:"omitempty,max=64"`
	Limit int      `json:"limit" validate:"omitempty,min=1,max=500"`
}

// ListDLQ returns dead-lettered entries, optionally filtered by kind.
func (h *AdminHandler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "queue store unavailable", nil)
		return
	}
	ctx := r.Context()
	kind := sanitizeKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	page, perPage := common.ParsePagination(r, h.pageSize(), 200)

	entries, err := h.Store.ListDead(ctx, kind, perPage, common.Offset(page, perPage))
	if err != nil {
		h.fail(w, "list dlq", err)
		return
	}
	total, err := h.Store.CountDead(ctx, kind)
	if err != nil {
		h.fail(w, "count dlq", err)
		return
	}

	items := make([]dlqItem, 0, len(entries))
	for _, entry := range entries {
		msg, err := decodeMessage(string(entry.Payload))
		if err != nil {
			continue
		}
		items = append(items, dlqItem{
			ID:             entry.ID,
			Kind:           entry.Kind,
			IdempotencyKey: entry.IdempotencyKey,
			Attempts:       entry.Attempts,
			LastError:      entry.LastError,
			CreatedAt:      entry.CreatedAt,
			Message:        msg,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": items,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// ReplayDLQ re-enqueues entries by id, or the oldest batch of one kind.
func (h *AdminHandler) ReplayDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil || h.Queue.R == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "queue dependencies unavailable", nil)
		return
	}
	var req replayRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	kind := sanitizeKind(strings.TrimSpace(req.Kind))
	if len(req.IDs) == 0 && kind == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "ids or kind required", nil)
		return
	}

	ctx := r.Context()
	var entries []DLQEntry
	failed := make(map[string]string)
	if len(req.IDs) > 0 {
		seen := make(map[uuid.UUID]bool, len(req.IDs))
		for _, raw := range req.IDs {
			id := uuid.MustParse(raw)
			if seen[id] {
				continue
			}
			seen[id] = true
			entry, err := h.Store.Dead(ctx, id)
			if err != nil {
				failed[raw] = err.Error()
				continue
			}
			entries = append(entries, entry)
		}
	} else {
		limit := req.Limit
		if limit <= 0 {
			limit = h.pageSize()
		}
		var err error
		if entries, err = h.Store.ListDead(ctx, kind, limit, 0); err != nil {
			h.fail(w, "list dlq", err)
			return
		}
	}

	replayed := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := h.requeue(ctx, entry); err != nil {
			failed[entry.ID.String()] = err.Error()
			continue
		}
		replayed = append(replayed, entry.ID)
	}
	h.Logger.Info().Int("replayed", len(replayed)).Int("failed", len(failed)).Str("kind", kind).Msg("dlq replay")

	resp := map[string]any{"replayed": replayed}
	if len(failed) > 0 {
		resp["failed"] = failed
	}
	common.JSON(w, http.StatusOK, resp)
}

// Stats reports ready, in-flight and dead-lettered counts for one kind.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Queue.R == nil || h.Store == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "queue dependencies unavailable", nil)
		return
	}
	kind := sanitizeKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "kind is required", nil)
		return
	}
	ctx := r.Context()
	k := keys{h.Queue.Prefix}

	ready, err := h.Queue.R.ZCard(ctx, k.queue(kind)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		h.fail(w, "queue depth", err)
		return
	}
	inflight, err := h.Queue.R.ZCard(ctx, k.processing(kind)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		h.fail(w, "processing depth", err)
		return
	}
	dead, err := h.Store.CountDead(ctx, kind)
	if err != nil {
		h.fail(w, "count dlq", err)
		return
	}

	var lagMillis int64
	if oldest, err := h.Queue.R.ZRangeWithScores(ctx, k.queue(kind), 0, 0).Result(); err == nil && len(oldest) > 0 {
		if ts := time.Unix(0, int64(oldest[0].Score)); ts.Before(time.Now()) {
			lagMillis = time.Since(ts).Milliseconds()
		}
	}
	QueueDepth.WithLabelValues(queueLabel(kind)).Set(float64(ready))
	QueueDLQSize.WithLabelValues(queueLabel(kind)).Set(float64(dead))

	visibility := h.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"kind":               kind,
		"ready":              ready,
		"processing":         inflight,
		"dlq":                dead,
		"oldest_lag_ms":      lagMillis,
		"visibility_timeout": visibility.Seconds(),
	})
}

// requeue puts a dead task back with one attempt left to spend.
func (h *AdminHandler) requeue(ctx context.Context, entry DLQEntry) error {
	msg, err := decodeMessage(string(entry.Payload))
	if err != nil {
		return err
	}
	if err := h.Queue.Enqueue(ctx, Task{
		Kind:           msg.Kind,
		Payload:        msg.Payload,
		IdempotencyKey: msg.Key,
		MaxAttempts:    msg.MaxAttempts,
		Attempt:        max(msg.Attempt-1, 0),
	}); err != nil {
		return err
	}
	if err := h.Store.Discard(ctx, entry.ID); err != nil {
		return err
	}
	if count, err := h.Store.CountDead(ctx, msg.Kind); err == nil {
		QueueDLQSize.WithLabelValues(queueLabel(msg.Kind)).Set(float64(count))
	}
	return nil
}

func (h *AdminHandler) fail(w http.ResponseWriter, op string, err error) {
	h.Logger.Error().Err(err).Str("op", op).Msg("queue admin")
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "queue operation failed", nil)
}

func (h *AdminHandler) pageSize() int {
	if h.PageSize <= 0 {
		return 50
	}
	return h.PageSize
}
