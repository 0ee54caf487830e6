package coupon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/tenant"
)

// stubQueries emulates the coupon table. IncrementCouponUsage applies the
// same conditional update Postgres does, under a mutex.
type stubQueries struct {
	mu          sync.Mutex
	coupons     map[string]dbgen.Coupon
	redemptions map[[2]uuid.UUID]bool
}

func newStub(coupons ...dbgen.Coupon) *stubQueries {
	s := &stubQueries{coupons: map[string]dbgen.Coupon{}, redemptions: map[[2]uuid.UUID]bool{}}
	for _, c := range coupons {
		s.coupons[c.Code] = c
	}
	return s
}

func (s *stubQueries) GetCouponByCode(_ context.Context, arg dbgen.GetCouponByCodeParams) (dbgen.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[arg.Code]
	if !ok || c.TenantID != arg.TenantID {
		return dbgen.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (s *stubQueries) CreateCoupon(_ context.Context, arg dbgen.CreateCouponParams) (dbgen.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.coupons[arg.Code]; exists {
		return dbgen.Coupon{}, &pgconn.PgError{Code: "23505"}
	}
	c := dbgen.Coupon{
		ID:             uuidToPg(uuid.New()),
		TenantID:       arg.TenantID,
		Code:           arg.Code,
		DiscountType:   arg.DiscountType,
		DiscountValue:  arg.DiscountValue,
		MinOrderAmount: arg.MinOrderAmount,
		UsageLimit:     arg.UsageLimit,
		IsActive:       arg.IsActive,
	}
	s.coupons[c.Code] = c
	return c, nil
}

func (s *stubQueries) IncrementCouponUsage(_ context.Context, id pgtype.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, c := range s.coupons {
		if c.ID != id {
			continue
		}
		if !c.IsActive || (c.UsageLimit.Valid && c.UsedCount >= c.UsageLimit.Int32) {
			return 0, nil
		}
		c.UsedCount++
		s.coupons[code] = c
		return 1, nil
	}
	return 0, nil
}

func (s *stubQueries) InsertCouponRedemption(_ context.Context, arg dbgen.InsertCouponRedemptionParams) (dbgen.CouponRedemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{arg.CouponID.Bytes, arg.OrderID.Bytes}
	if s.redemptions[key] {
		return dbgen.CouponRedemption{}, &pgconn.PgError{Code: "23505"}
	}
	s.redemptions[key] = true
	return dbgen.CouponRedemption{CouponID: arg.CouponID, OrderID: arg.OrderID, DiscountAmount: arg.DiscountAmount}, nil
}

func newCoupon(tenantID uuid.UUID, limit int32) dbgen.Coupon {
	return dbgen.Coupon{
		ID:             uuidToPg(uuid.New()),
		TenantID:       uuidToPg(tenantID),
		Code:           "WELCOME10",
		DiscountType:   string(Percentage),
		DiscountValue:  1000,
		MinOrderAmount: 1000,
		UsageLimit:     pgtype.Int4{Int32: limit, Valid: limit > 0},
		ValidFrom:      pgtype.Timestamptz{Time: time.Now().Add(-time.Hour), Valid: true},
		ValidUntil:     pgtype.Timestamptz{Time: time.Now().Add(time.Hour), Valid: true},
		IsActive:       true,
	}
}

func TestServiceValidateQuotesDiscount(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenant.WithTenant(context.Background(), tenantID.String())
	svc := &Service{Q: newStub(newCoupon(tenantID, 0))}

	quote, err := svc.Validate(ctx, " welcome10 ", 20000)
	require.NoError(t, err)
	require.Equal(t, "WELCOME10", quote.Code)
	require.Equal(t, Percentage, quote.DiscountType)
	require.EqualValues(t, 1000, quote.DiscountValue)
	require.EqualValues(t, 2000, quote.DiscountAmount)
}

func TestServiceValidateRejectsWithReason(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenant.WithTenant(context.Background(), tenantID.String())
	svc := &Service{Q: newStub(newCoupon(tenantID, 0))}

	_, err := svc.Validate(ctx, "WELCOME10", 500)
	require.ErrorIs(t, err, common.ErrValidation)
	require.ErrorIs(t, err, ErrBelowMinimum)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "COUPON_INVALID", appErr.Code)
	require.Equal(t, map[string]string{"reason": "below_minimum"}, appErr.Details)
}

func TestServiceValidateIsTenantScoped(t *testing.T) {
	svc := &Service{Q: newStub(newCoupon(uuid.New(), 0))}
	ctx := tenant.WithTenant(context.Background(), uuid.New().String())
	_, err := svc.Validate(ctx, "WELCOME10", 20000)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestRedeemNeverExceedsUsageLimit(t *testing.T) {
	const (
		attempts = 40
		limit    = 7
	)
	tenantID := uuid.New()
	model := newCoupon(tenantID, limit)
	stub := newStub(model)
	svc := &Service{Q: stub}
	c := FromModel(model)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		rejected  atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := svc.Redeem(context.Background(), stub, uuidToPg(tenantID), c, uuidToPg(uuid.New()), 100)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, common.ErrConflict):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, limit, successes.Load())
	require.EqualValues(t, attempts-limit, rejected.Load())
	require.EqualValues(t, limit, stub.coupons["WELCOME10"].UsedCount)
}

func TestRedeemTwiceForSameOrderConflicts(t *testing.T) {
	tenantID := uuid.New()
	model := newCoupon(tenantID, 0)
	stub := newStub(model)
	svc := &Service{Q: stub}
	orderID := uuidToPg(uuid.New())

	require.NoError(t, svc.Redeem(context.Background(), stub, uuidToPg(tenantID), FromModel(model), orderID, 100))
	err := svc.Redeem(context.Background(), stub, uuidToPg(tenantID), FromModel(model), orderID, 100)
	require.ErrorIs(t, err, common.ErrConflict)
}
