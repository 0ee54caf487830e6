package coupon

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/money"
)

// FromModel converts the generated sqlc model into a Coupon used for evaluation.
func FromModel(m dbgen.Coupon) Coupon {
	c := Coupon{
		ID:             uuid.UUID(m.ID.Bytes),
		Code:           m.Code,
		DiscountType:   DiscountType(m.DiscountType),
		DiscountValue:  m.DiscountValue,
		MinOrderAmount: m.MinOrderAmount,
		UsedCount:      m.UsedCount,
		IsActive:       m.IsActive,
	}
	if m.MaxDiscountAmount.Valid {
		max := money.Amount(m.MaxDiscountAmount.Int64)
		c.MaxDiscountAmount = &max
	}
	if m.UsageLimit.Valid {
		limit := m.UsageLimit.Int32
		c.UsageLimit = &limit
	}
	c.ValidFrom = timeFromNullable(m.ValidFrom)
	c.ValidUntil = timeFromNullable(m.ValidUntil)
	return c
}

func timeFromNullable(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func timeToNullable(v *time.Time) pgtype.Timestamptz {
	if v == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *v, Valid: true}
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
