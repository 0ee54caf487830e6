package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/resilience"
)

const defaultMaxAttempts = 10

// Task represents a job to be processed asynchronously.
type Task struct {
	Kind           string
	Payload        []byte
	IdempotencyKey string
	MaxAttempts    int
	// Attempt is 1 on the first delivery.
	Attempt int
	Delay   time.Duration
}

// Enqueuer publishes tasks to Redis backed queues.
type Enqueuer struct {
	R           *redis.Client
	Prefix      string
	DedupTTL    time.Duration
	MaxAttempts int
}

// Enqueue inserts the task into the queue. If an idempotency key is supplied the
// task is only enqueued once within the configured deduplication window.
func (e Enqueuer) Enqueue(ctx context.Context, t Task) error {
	if e.R == nil {
		return errors.New("queue: redis client not configured")
	}
	kind := sanitizeKind(t.Kind)
	if kind == "" {
		return errors.New("queue: task kind is required")
	}
	msg := taskMessage{
		Kind:        kind,
		Key:         t.IdempotencyKey,
		Payload:     t.Payload,
		Attempt:     t.Attempt,
		MaxAttempts: t.MaxAttempts,
		AvailableAt: time.Now().Add(t.Delay).UnixNano(),
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = e.MaxAttempts
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = defaultMaxAttempts
	}

	if msg.Key != "" {
		ttl := e.DedupTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ok, err := e.R.SetNX(ctx, keys{e.Prefix}.dedup(kind, msg.Key), "1", ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return e.R.ZAdd(ctx, keys{e.Prefix}.queue(kind), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
}

func sanitizeKind(kind string) string {
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		if c >= 'a' && c <= 'z' {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '-' || c == '_' || c == ':' {
			continue
		}
		return ""
	}
	return kind
}

// Worker consumes tasks for a specific kind. Tasks that exhaust MaxAttempts
// are written to Store (the queue_dlq table) or, without a store, to a Redis
// list.
type Worker struct {
	R                 *redis.Client
	Prefix            string
	Kind              string
	Concurrency       int
	VisibilityTimeout time.Duration
	// SoftDeadline bounds a single handler call. Zero means VisibilityTimeout.
	SoftDeadline time.Duration
	// HeartbeatInterval extends the visibility of long running tasks.
	HeartbeatInterval time.Duration
	Handler           func(context.Context, Task) error
	RetryBase         time.Duration
	RetryJitter       float64
	Store             Store
	Logger            *zerolog.Logger
}

// Run starts processing tasks until the context is cancelled. Active tasks are
// tracked in a processing set to enable redelivery when workers crash.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return errors.New("queue: worker redis client not configured")
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	kind := sanitizeKind(w.Kind)
	if kind == "" {
		return errors.New("queue: worker kind is required")
	}
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	visibility := w.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	k := keys{w.Prefix}
	queueKey, processingKey := k.queue(kind), k.processing(kind)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	requeueTicker := time.NewTicker(time.Second)
	defer requeueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-requeueTicker.C:
			if err := w.requeueExpired(ctx, processingKey, queueKey); err != nil && ctx.Err() == nil {
				return err
			}
		default:
		}

		res, err := w.R.ZPopMin(ctx, queueKey, 1).Result()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			if errors.Is(err, redis.Nil) {
				sleepCtx(ctx, 100*time.Millisecond)
				continue
			}
			return err
		}
		if len(res) == 0 {
			sleepCtx(ctx, 100*time.Millisecond)
			continue
		}
		member, ok := res[0].Member.(string)
		if !ok {
			continue
		}
		msg, err := decodeMessage(member)
		if err != nil {
			w.log().Warn().Err(err).Str("kind", kind).Msg("dropping undecodable task")
			continue
		}
		now := time.Now().UnixNano()
		if msg.AvailableAt > now {
			// not due yet, push back and wait
			w.R.ZAdd(ctx, queueKey, redis.Z{Score: float64(msg.AvailableAt), Member: member})
			sleepCtx(ctx, min(time.Duration(msg.AvailableAt-now), time.Second))
			continue
		}

		msg.Attempt++
		rawBytes, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		raw := string(rawBytes)
		deadline := time.Now().Add(visibility).UnixNano()
		if err := w.R.ZAdd(ctx, processingKey, redis.Z{Score: float64(deadline), Member: raw}).Err(); err != nil {
			return err
		}
		w.observeDepth(ctx, kind, queueKey)

		sem <- struct{}{}
		wg.Add(1)
		go func(raw string, m taskMessage) {
			defer func() { <-sem }()
			defer wg.Done()
			w.process(ctx, raw, m, visibility)
		}(raw, msg)
	}
}

func (w Worker) process(ctx context.Context, raw string, m taskMessage, visibility time.Duration) {
	k := keys{w.Prefix}
	soft := w.SoftDeadline
	if soft <= 0 {
		soft = visibility
	}
	jobCtx, cancel := context.WithTimeout(ctx, soft)
	stopBeat := w.heartbeat(jobCtx, k.processing(m.Kind), raw, visibility)
	err := w.Handler(jobCtx, Task{
		Kind:           m.Kind,
		Payload:        m.Payload,
		IdempotencyKey: m.Key,
		MaxAttempts:    m.MaxAttempts,
		Attempt:        m.Attempt,
	})
	stopBeat()
	cancel()

	// bookkeeping must survive shutdown of the run loop
	bg := context.WithoutCancel(ctx)
	_ = w.R.ZRem(bg, k.processing(m.Kind), raw).Err()
	if err == nil {
		w.ack(bg, m)
		return
	}
	w.handleFailure(bg, m, err)
}

func (w Worker) heartbeat(ctx context.Context, processingKey, raw string, visibility time.Duration) func() {
	interval := w.HeartbeatInterval
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(visibility).UnixNano()
				_ = w.R.ZAddXX(ctx, processingKey, redis.Z{Score: float64(deadline), Member: raw}).Err()
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

func (w Worker) handleFailure(ctx context.Context, msg taskMessage, cause error) {
	k := keys{w.Prefix}
	if msg.MaxAttempts > 0 && msg.Attempt >= msg.MaxAttempts {
		QueueProcessedTotal.WithLabelValues(msg.Kind, "dead").Inc()
		w.log().Error().Err(cause).Str("kind", msg.Kind).Str("key", msg.Key).Int("attempt", msg.Attempt).Msg("task moved to dlq")
		w.deadLetter(ctx, msg, cause)
		if msg.Key != "" {
			_ = w.R.Del(ctx, k.dedup(msg.Kind, msg.Key)).Err()
		}
		return
	}
	QueueProcessedTotal.WithLabelValues(msg.Kind, "retry").Inc()
	w.log().Warn().Err(cause).Str("kind", msg.Kind).Str("key", msg.Key).Int("attempt", msg.Attempt).Msg("task failed, retrying")
	base := w.RetryBase
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	msg.AvailableAt = time.Now().Add(resilience.Backoff(base, msg.Attempt, w.RetryJitter)).UnixNano()
	rawBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = w.R.ZAdd(ctx, k.queue(msg.Kind), redis.Z{Score: float64(msg.AvailableAt), Member: string(rawBytes)}).Err()
}

func (w Worker) deadLetter(ctx context.Context, msg taskMessage, cause error) {
	rawBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if w.Store != nil {
		_, err := w.Store.Bury(ctx, DLQEntry{
			Kind:           msg.Kind,
			IdempotencyKey: msg.Key,
			Payload:        rawBytes,
			Attempts:       msg.Attempt,
			LastError:      cause.Error(),
		})
		if err == nil {
			QueueDLQSize.WithLabelValues(queueLabel(msg.Kind)).Inc()
			return
		}
		w.log().Error().Err(err).Str("kind", msg.Kind).Msg("persist dlq entry, falling back to redis")
	}
	_ = w.R.LPush(ctx, keys{w.Prefix}.dlq(msg.Kind), rawBytes).Err()
}

func (w Worker) ack(ctx context.Context, msg taskMessage) {
	QueueProcessedTotal.WithLabelValues(msg.Kind, "ok").Inc()
	if msg.Key != "" {
		_ = w.R.Del(ctx, keys{w.Prefix}.dedup(msg.Kind, msg.Key)).Err()
	}
}

func (w Worker) requeueExpired(ctx context.Context, processingKey, queueKey string) error {
	now := float64(time.Now().UnixNano())
	due, err := w.R.ZRangeByScore(ctx, processingKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, raw := range due {
		msg, err := decodeMessage(raw)
		if err != nil {
			continue
		}
		_ = w.R.ZRem(ctx, processingKey, raw).Err()
		msg.AvailableAt = time.Now().UnixNano()
		encoded, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		_ = w.R.ZAdd(ctx, queueKey, redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err()
		w.log().Warn().Str("kind", msg.Kind).Str("key", msg.Key).Msg("visibility expired, task requeued")
	}
	return nil
}

func (w Worker) observeDepth(ctx context.Context, kind, queueKey string) {
	depth, err := w.R.ZCard(ctx, queueKey).Result()
	if err == nil {
		QueueDepth.WithLabelValues(queueLabel(kind)).Set(float64(depth))
	}
}

func (w Worker) log() *zerolog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// keys builds the Redis key layout shared by Enqueuer and Worker.
type keys struct{ prefix string }

func (k keys) queue(kind string) string {
	if k.prefix == "" {
		return "queue:" + kind
	}
	return k.prefix + ":queue:" + kind
}

func (k keys) processing(kind string) string {
	if k.prefix == "" {
		return "queue:" + kind + ":processing"
	}
	return k.prefix + ":" + kind + ":processing"
}

func (k keys) dlq(kind string) string {
	if k.prefix == "" {
		return "queue:" + kind + ":dlq"
	}
	return k.prefix + ":" + kind + ":dlq"
}

func (k keys) dedup(kind, key string) string {
	if k.prefix == "" {
		return "queue:dedup:" + kind + ":" + key
	}
	return k.prefix + ":dedup:" + kind + ":" + key
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func queueLabel(kind string) string {
	if kind == "" {
		return "all"
	}
	return kind
}

func decodeMessage(raw string) (taskMessage, error) {
	var msg taskMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return taskMessage{}, err
	}
	return msg, nil
}

type taskMessage struct {
	Kind        string `json:"kind"`
	Key         string `json:"key,omitempty"`
	Payload     []byte `json:"payload"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	AvailableAt int64  `json:"available_at"`
}
