package security

import (
	"net/http"
	"strconv"
)

// Headers sets response hardening headers. Order, payment and invoice
// responses carry amounts, so caching is disabled unless AllowCache is set.
type Headers struct {
	AllowCache bool
	// HSTSMaxAge in seconds; zero disables Strict-Transport-Security.
	HSTSMaxAge int
}

// Middleware attaches the headers to each response.
func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		if !h.AllowCache {
			headers.Set("Cache-Control", "no-store")
		}
		if h.HSTSMaxAge > 0 && r.TLS != nil {
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(h.HSTSMaxAge)+"; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
