package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/money"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/tenant"
)

// Querier captures the read and admin queries used by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, arg dbgen.GetCouponByCodeParams) (dbgen.Coupon, error)
	CreateCoupon(ctx context.Context, arg dbgen.CreateCouponParams) (dbgen.Coupon, error)
}

// RedeemQuerier is the transactional subset used while an order is created.
type RedeemQuerier interface {
	IncrementCouponUsage(ctx context.Context, id pgtype.UUID) (int64, error)
	InsertCouponRedemption(ctx context.Context, arg dbgen.InsertCouponRedemptionParams) (dbgen.CouponRedemption, error)
}

// Quote is the outcome of a successful validation.
type Quote struct {
	ID             uuid.UUID    `json:"id"`
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discountType"`
	DiscountValue  int64        `json:"discountValue"`
	DiscountAmount money.Amount `json:"discountAmount"`
}

// Service evaluates coupons and records redemptions.
type Service struct {
	Q      Querier
	Now    func() time.Time
	Logger zerolog.Logger
}

// Lookup loads the tenant's coupon by code.
func (s *Service) Lookup(ctx context.Context, code string) (Coupon, error) {
	if s == nil || s.Q == nil {
		return Coupon{}, errors.New("coupon service not configured")
	}
	tenantID, err := tenant.UUIDFromContext(ctx)
	if err != nil {
		return Coupon{}, common.Validation("TENANT_REQUIRED", err.Error())
	}
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Coupon{}, common.Validation("BAD_REQUEST", "code is required")
	}
	row, err := s.Q.GetCouponByCode(ctx, dbgen.GetCouponByCodeParams{TenantID: tenantID, Code: normalized})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, common.NotFound("COUPON_NOT_FOUND", "coupon not found")
		}
		return Coupon{}, err
	}
	return FromModel(row), nil
}

// Evaluate validates c and computes its discount for orderAmount.
func (s *Service) Evaluate(c Coupon, orderAmount money.Amount) (money.Amount, error) {
	if err := Validate(c, orderAmount, s.now()); err != nil {
		obs.Count(obs.CouponValidationsTotal, Reason(err))
		return 0, InvalidError(err)
	}
	discount, err := ComputeDiscount(c, orderAmount)
	if err != nil {
		return 0, err
	}
	obs.Count(obs.CouponValidationsTotal, "ok")
	return discount, nil
}

// Validate is the read-only check behind the validation endpoint.
func (s *Service) Validate(ctx context.Context, code string, orderAmount money.Amount) (Quote, error) {
	if orderAmount < 0 {
		return Quote{}, common.Validation("BAD_REQUEST", "orderAmount must not be negative")
	}
	c, err := s.Lookup(ctx, code)
	if err != nil {
		return Quote{}, err
	}
	discount, err := s.Evaluate(c, orderAmount)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		ID:             c.ID,
		Code:           c.Code,
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
		DiscountAmount: discount,
	}, nil
}

// Redeem consumes one use of c for orderID. It must run inside the
// transaction that creates the order so a failed order releases the use.
// The increment is a single conditional update, so concurrent redemptions
// can never push used_count past usage_limit.
func (s *Service) Redeem(ctx context.Context, q RedeemQuerier, tenantID pgtype.UUID, c Coupon, orderID pgtype.UUID, discount money.Amount) error {
	n, err := q.IncrementCouponUsage(ctx, uuidToPg(c.ID))
	if err != nil {
		obs.Count(obs.CouponRedemptionsTotal, "error")
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	if n == 0 {
		obs.Count(obs.CouponRedemptionsTotal, "limit_reached")
		s.Logger.Info().Str("coupon", c.Code).Msg("coupon redemption rejected: limit reached")
		return common.Conflict("COUPON_INVALID", "coupon usage limit reached").
			WithDetails(map[string]string{"reason": Reason(ErrLimitReached)})
	}
	_, err = q.InsertCouponRedemption(ctx, dbgen.InsertCouponRedemptionParams{
		TenantID:       tenantID,
		CouponID:       uuidToPg(c.ID),
		OrderID:        orderID,
		DiscountAmount: discount,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			obs.Count(obs.CouponRedemptionsTotal, "duplicate")
			return common.Conflict("COUPON_ALREADY_REDEEMED", "coupon already redeemed for this order")
		}
		obs.Count(obs.CouponRedemptionsTotal, "error")
		return fmt.Errorf("record coupon redemption: %w", err)
	}
	obs.Count(obs.CouponRedemptionsTotal, "ok")
	return nil
}

// InvalidError wraps a rejection reason in the validation error returned to clients.
func InvalidError(reason error) error {
	appErr := common.Validation("COUPON_INVALID", reason.Error()).
		WithDetails(map[string]string{"reason": Reason(reason)})
	appErr.Err = fmt.Errorf("%w: %w", common.ErrValidation, reason)
	return appErr
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
