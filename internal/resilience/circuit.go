// Package resilience guards outbound calls to third parties (the payment
// gateway) with retries, backoff and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

var stateNames = [...]string{Closed: "closed", Open: "open", HalfOpen: "half_open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Breaker opens when the failure ratio over the last window outcomes reaches
// the threshold. After openFor it lets one probe through; the probe's result
// closes or reopens it.
type Breaker struct {
	mu        sync.Mutex
	state     State
	window    []bool // true = failure, ring buffer
	next      int
	filled    int
	threshold float64
	openFor   time.Duration
	openedAt  time.Time
	probing   bool
	target    string
	logger    zerolog.Logger
}

// NewBreaker returns a closed breaker that trips once at least minRequests
// outcomes are recorded and their failure ratio is >= failureRatio.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	minRequests = max(minRequests, 1)
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		window:    make([]bool, minRequests),
		threshold: min(failureRatio, 1),
		openFor:   openFor,
		target:    "default",
		logger:    zerolog.Nop(),
	}
}

// WithTarget names the guarded dependency in metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := strings.TrimSpace(target); t != "" {
		b.target = t
	}
	BreakerState.WithLabelValues(b.target).Set(float64(b.state))
	return b
}

// WithLogger sets the logger used for state transitions.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.openFor {
			return false
		}
		b.moveLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of a call admitted by Allow.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.moveLocked(ctx, Closed)
		} else {
			b.moveLocked(ctx, Open)
		}
		return
	}

	b.window[b.next] = !success
	b.next = (b.next + 1) % len(b.window)
	b.filled = min(b.filled+1, len(b.window))
	if b.filled < len(b.window) {
		return
	}
	failures := 0
	for _, failed := range b.window {
		if failed {
			failures++
		}
	}
	if float64(failures)/float64(len(b.window)) >= b.threshold {
		b.moveLocked(ctx, Open)
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) moveLocked(ctx context.Context, to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.filled, b.next = 0, 0
	if to == Open {
		b.openedAt = time.Now()
		BreakerOpenedTotal.WithLabelValues(b.target).Inc()
	}
	BreakerState.WithLabelValues(b.target).Set(float64(to))
	BreakerTransitions.WithLabelValues(b.target, from.String(), to.String()).Inc()

	evt := b.logger.Warn()
	if to == Closed {
		evt = b.logger.Info()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Str("target", b.target).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker transition")
}

// Backoff returns base*2^(attempt-1), spread by +/- jitterPct (0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(max(attempt, 1)-1)
	if jitterPct <= 0 {
		return d
	}
	spread := float64(d) * jitterPct
	return d + time.Duration((rand.Float64()*2-1)*spread)
}
