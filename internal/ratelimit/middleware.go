// Package ratelimit throttles endpoints that can be brute forced, such as
// coupon code validation.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/tenant"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// TenantClientKey keys requests by route name, tenant and client address, so
// one tenant's traffic never exhausts another's budget.
func TenantClientKey(route string) func(*http.Request) string {
	return func(r *http.Request) string {
		tenantID, _ := tenant.FromContext(r.Context())
		return tenant.PrefixKey(tenantID, route+":"+common.ClientIP(r))
	}
}

// Middleware answers 429 with a Retry-After once Config.Max hits land within
// Config.Window. Limiter failures are reported to OnError and let through.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Config.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, reset, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		setLimitHeaders(w.Header(), h.Config.Max, remaining, reset)
		if ok {
			next.ServeHTTP(w, r)
			return
		}
		wait := max(int(time.Until(reset).Seconds()), 0)
		w.Header().Set("Retry-After", strconv.Itoa(wait))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", map[string]any{"retryAfter": wait})
	})
}

func setLimitHeaders(h http.Header, limit, remaining int, reset time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(max(limit, 0)))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}
