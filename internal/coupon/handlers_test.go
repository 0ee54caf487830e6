package coupon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/tenant"
)

func serve(t *testing.T, h http.HandlerFunc, tenantID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/validate", strings.NewReader(body))
	req = req.WithContext(tenant.WithTenant(context.Background(), tenantID.String()))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestValidateHandlerReturnsQuote(t *testing.T) {
	tenantID := uuid.New()
	h := &Handler{Svc: &Service{Q: newStub(newCoupon(tenantID, 0))}}

	rec := serve(t, h.Validate, tenantID, `{"code":"WELCOME10","orderAmount":20000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Valid  bool `json:"valid"`
		Coupon struct {
			Code           string `json:"code"`
			DiscountType   string `json:"discountType"`
			DiscountValue  int64  `json:"discountValue"`
			DiscountAmount int64  `json:"discountAmount"`
		} `json:"coupon"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Valid)
	require.Equal(t, "percentage", resp.Coupon.DiscountType)
	require.EqualValues(t, 2000, resp.Coupon.DiscountAmount)
}

func TestValidateHandlerReportsReason(t *testing.T) {
	tenantID := uuid.New()
	model := newCoupon(tenantID, 1)
	model.UsedCount = 1
	h := &Handler{Svc: &Service{Q: newStub(model)}}

	rec := serve(t, h.Validate, tenantID, `{"code":"WELCOME10","orderAmount":20000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":{"code":"COUPON_INVALID","message":"coupon usage limit reached","details":{"reason":"limit_reached"}}}`, rec.Body.String())
}

func TestValidateHandlerRequiresAmount(t *testing.T) {
	tenantID := uuid.New()
	h := &Handler{Svc: &Service{Q: newStub()}}
	rec := serve(t, h.Validate, tenantID, `{"code":"WELCOME10"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}

func TestCreateHandlerRejectsDuplicateCode(t *testing.T) {
	tenantID := uuid.New()
	h := &Handler{Svc: &Service{Q: newStub()}}
	body := `{"code":"lunch50","discountType":"fixed","discountValue":5000,"minOrderAmount":20000,"usageLimit":100}`

	rec := serve(t, h.Create, tenantID, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"LUNCH50"`)

	rec = serve(t, h.Create, tenantID, body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateHandlerRejectsPercentageOverWhole(t *testing.T) {
	tenantID := uuid.New()
	h := &Handler{Svc: &Service{Q: newStub()}}
	rec := serve(t, h.Create, tenantID, `{"code":"BAD","discountType":"percentage","discountValue":15000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
