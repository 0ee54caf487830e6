package tenant_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-resto/internal/tenant"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireTenantMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	tenant.Require(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRequireTenantMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(tenant.DefaultHeader, "tenant-123")
	rec := httptest.NewRecorder()
	tenant.NewResolver("").Middleware(tenant.Require(okHandler())).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "TENANT_INVALID") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestResolverInjectsHeaderTenant(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(tenant.DefaultHeader, " "+id.String()+" ")
	rec := httptest.NewRecorder()

	var seen string
	h := tenant.NewResolver("").Middleware(tenant.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err := tenant.UUIDFromContext(r.Context())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen = uuid.UUID(got.Bytes).String()
		w.WriteHeader(http.StatusOK)
	})))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != id.String() {
		t.Fatalf("expected tenant %s, got %s", id, seen)
	}
}

func TestPrefixKey(t *testing.T) {
	if got := tenant.PrefixKey("", "k"); got != "k" {
		t.Fatalf("unexpected %q", got)
	}
	if got := tenant.PrefixKey("t1", "k"); got != "t1:k" {
		t.Fatalf("unexpected %q", got)
	}
}
