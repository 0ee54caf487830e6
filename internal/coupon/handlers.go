package coupon

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/tenant"
)

// Handler exposes coupon validation and management endpoints.
type Handler struct {
	Svc *Service
}

type validateRequest struct {
	Code        string `json:"code" validate:"required,max=64"`
	OrderAmount *int64 `json:"orderAmount" validate:"required,min=0"`
}

type couponPayload struct {
	Code              string     `json:"code" validate:"required,max=64"`
	DiscountType      string     `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue     int64      `json:"discountValue" validate:"min=0"`
	MinOrderAmount    int64      `json:"minOrderAmount" validate:"min=0"`
	MaxDiscountAmount *int64     `json:"maxDiscountAmount" validate:"omitempty,min=0"`
	UsageLimit        *int32     `json:"usageLimit" validate:"omitempty,min=0"`
	ValidFrom         *time.Time `json:"validFrom"`
	ValidUntil        *time.Time `json:"validUntil"`
	IsActive          *bool      `json:"isActive"`
}

// Validate checks a coupon against an order amount without consuming it.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req validateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	quote, err := h.Svc.Validate(r.Context(), req.Code, *req.OrderAmount)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"valid": true, "coupon": quote})
}

// Create registers a new coupon for the tenant.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	tenantID, err := tenant.UUIDFromContext(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "TENANT_REQUIRED", err.Error(), nil)
		return
	}
	var payload couponPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	params, err := buildCreateParams(tenantID, payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	row, err := h.Svc.Q.CreateCoupon(r.Context(), params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		h.Svc.Logger.Error().Err(err).Msg("create coupon")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": row})
}

func buildCreateParams(tenantID pgtype.UUID, payload couponPayload) (dbgen.CreateCouponParams, error) {
	code := NormalizeCode(payload.Code)
	if code == "" {
		return dbgen.CreateCouponParams{}, common.Validation("BAD_REQUEST", "code is required")
	}
	kind := DiscountType(payload.DiscountType)
	if kind == Percentage && payload.DiscountValue > 10000 {
		return dbgen.CreateCouponParams{}, common.Validation("BAD_REQUEST", "percentage discountValue is in basis points and must not exceed 10000")
	}
	if payload.ValidFrom != nil && payload.ValidUntil != nil && payload.ValidUntil.Before(*payload.ValidFrom) {
		return dbgen.CreateCouponParams{}, common.Validation("BAD_REQUEST", "validUntil must not be before validFrom")
	}
	maxDiscount := pgtype.Int8{}
	if payload.MaxDiscountAmount != nil {
		maxDiscount = pgtype.Int8{Int64: *payload.MaxDiscountAmount, Valid: true}
	}
	usageLimit := pgtype.Int4{}
	if payload.UsageLimit != nil {
		usageLimit = pgtype.Int4{Int32: *payload.UsageLimit, Valid: true}
	}
	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	return dbgen.CreateCouponParams{
		TenantID:          tenantID,
		Code:              code,
		DiscountType:      string(kind),
		DiscountValue:     payload.DiscountValue,
		MinOrderAmount:    payload.MinOrderAmount,
		MaxDiscountAmount: maxDiscount,
		UsageLimit:        usageLimit,
		ValidFrom:         timeToNullable(payload.ValidFrom),
		ValidUntil:        timeToNullable(payload.ValidUntil),
		IsActive:          active,
	}, nil
}
