package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type contextKey string

const tenantContextKey contextKey = "tenant.id"

// DefaultHeader carries the tenant id set by the upstream gateway.
const DefaultHeader = "X-Tenant-ID"

var (
	// ErrTenantMissing indicates the tenant identifier was not found in context.
	ErrTenantMissing = errors.New("tenant missing")
	// ErrTenantInvalid indicates the tenant identifier could not be parsed.
	ErrTenantInvalid = errors.New("tenant invalid")
)

// Resolver reads the tenant identifier from a trusted request header.
type Resolver struct {
	HeaderName string
}

// NewResolver returns a resolver for headerName, defaulting to X-Tenant-ID.
func NewResolver(headerName string) *Resolver {
	if strings.TrimSpace(headerName) == "" {
		headerName = DefaultHeader
	}
	return &Resolver{HeaderName: headerName}
}

// Middleware resolves the tenant from the request and injects it into the context passed downstream.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if tenantID := r.Resolve(req); tenantID != "" {
			req = req.WithContext(WithTenant(req.Context(), tenantID))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve returns the trimmed header value.
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	return strings.TrimSpace(req.Header.Get(r.HeaderName))
}

// Require rejects requests without a well-formed tenant id in context.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := UUIDFromContext(r.Context()); err != nil {
			code, message := "TENANT_REQUIRED", "tenant is required"
			if errors.Is(err, ErrTenantInvalid) {
				code, message = "TENANT_INVALID", "tenant id must be a uuid"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%q,"message":%q}}`, code, message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithTenant stores the tenant identifier inside the context.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// FromContext extracts the tenant identifier from the context if available.
func FromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tenantID, ok := ctx.Value(tenantContextKey).(string)
	if !ok {
		return "", false
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", false
	}
	return tenantID, true
}

// UUIDFromContext returns the tenant id as a pgtype.UUID ready for queries.
func UUIDFromContext(ctx context.Context) (pgtype.UUID, error) {
	tenantID, ok := FromContext(ctx)
	if !ok {
		return pgtype.UUID{}, ErrTenantMissing
	}
	parsed, err := uuid.Parse(tenantID)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %v", ErrTenantInvalid, err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

// PrefixKey namespaces a cache or queue key per tenant.
func PrefixKey(tenantID, key string) string {
	if tenantID == "" {
		return key
	}
	return tenantID + ":" + key
}
