package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slideScript trims hits older than ARGV[1], records a hit at ARGV[2] and
// returns the hit count inside the window. The key expires after ARGV[4] ms.
var slideScript = redis.NewScript(`redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[3])
local n = redis.call("ZCARD", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return n`)

// Limiter is a sliding window counter kept in a Redis sorted set per key.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// Allow records a hit for key and reports whether the key is within limit
// hits over the trailing window. Rejected hits count too, so a client that
// keeps guessing stays blocked.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, limit int) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	reset = now.Add(window)
	if l.Client == nil || limit <= 0 || window <= 0 {
		return true, limit, reset, nil
	}

	hits, err := slideScript.Run(ctx, l.Client, []string{l.Prefix + key},
		strconv.FormatInt(now.Add(-window).UnixNano(), 10),
		strconv.FormatInt(now.UnixNano(), 10),
		uuid.NewString(),
		window.Milliseconds(),
	).Int()
	if err != nil {
		return false, 0, reset, err
	}
	return hits <= limit, max(limit-hits, 0), reset, nil
}
