package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/db"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/ledger"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/order"
)

var errAlreadyIssued = errors.New("invoice: already issued")

// Service issues invoices. A number is drawn from the location's fiscal-year
// sequence in the same transaction that stores the invoice, so a lost race or
// a failure leaves no gap.
type Service struct {
	Q      dbgen.Querier
	Tx     db.Transactor
	Events *events.Bus
	Logger zerolog.Logger
	// Zone decides the fiscal year boundary. Nil means UTC.
	Zone *time.Location
	Now  func() time.Time
}

// Get returns the invoice for an order owned by the caller's tenant, issuing
// it on first request.
func (s *Service) Get(ctx context.Context, orderID string) (Data, error) {
	id, err := order.ParseUUID(orderID)
	if err != nil {
		return Data{}, common.Validation("BAD_REQUEST", "invalid order id")
	}
	o, err := order.LoadForTenant(ctx, s.Q, id)
	if err != nil {
		return Data{}, err
	}
	return s.issue(ctx, o)
}

// Issue assigns an invoice to a completed order. It is safe to call
// repeatedly and concurrently: every call returns the same invoice.
func (s *Service) Issue(ctx context.Context, orderID pgtype.UUID) (Data, error) {
	o, err := s.Q.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Data{}, common.NotFound("ORDER_NOT_FOUND", "order not found")
		}
		return Data{}, fmt.Errorf("load order: %w", err)
	}
	return s.issue(ctx, o)
}

func (s *Service) issue(ctx context.Context, o dbgen.Order) (Data, error) {
	ctx, span := otel.Tracer("invoice.Service").Start(ctx, "InvoiceService.Issue")
	defer span.End()
	orderID := order.UUIDString(o.ID)
	span.SetAttributes(attribute.String("order.id", orderID))

	if data, ok, err := s.existing(ctx, s.Q, o.ID); err != nil || ok {
		if ok {
			obs.Count(obs.InvoicesIssuedTotal, "existing")
		}
		return data, err
	}
	if ledger.Status(o.Status) != ledger.StatusCompleted {
		obs.Count(obs.InvoicesIssuedTotal, "rejected")
		return Data{}, common.Forbidden("INVOICE_UNAVAILABLE", "invoice is only available for completed orders")
	}

	issuedAt := s.now().UTC().Truncate(time.Microsecond)
	fy := FiscalYear(issuedAt, s.Zone)
	var data Data
	err := s.Tx.InTx(ctx, func(q dbgen.Querier) error {
		current, err := q.GetOrder(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		loc, err := q.GetLocation(ctx, current.LocationID)
		if err != nil {
			return fmt.Errorf("load location: %w", err)
		}
		items, err := q.ListOrderItems(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		seq, err := q.NextInvoiceSequence(ctx, dbgen.NextInvoiceSequenceParams{LocationID: loc.ID, FiscalYear: int32(fy)})
		if err != nil {
			return fmt.Errorf("next invoice sequence: %w", err)
		}
		data, err = Compose(current, items, loc, FormatNumber(loc.InvoicePrefix, fy, int64(seq)), fy, issuedAt)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return err
		}
		if _, err := q.InsertInvoice(ctx, dbgen.InsertInvoiceParams{
			TenantID:      current.TenantID,
			OrderID:       current.ID,
			LocationID:    loc.ID,
			InvoiceNumber: data.Number,
			FiscalYear:    int32(fy),
			IssuedAt:      pgtype.Timestamptz{Time: issuedAt, Valid: true},
			Payload:       payload,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errAlreadyIssued
			}
			return fmt.Errorf("insert invoice: %w", err)
		}
		return nil
	})
	switch {
	case errors.Is(err, errAlreadyIssued):
		obs.Count(obs.InvoicesIssuedTotal, "existing")
		data, _, err = s.existing(ctx, s.Q, o.ID)
		return data, err
	case err != nil:
		obs.Count(obs.InvoicesIssuedTotal, "error")
		span.RecordError(err)
		if errors.Is(err, common.ErrInvariantViolation) {
			s.Logger.Error().Err(err).Str("order_id", orderID).Msg("invoice invariant violation")
		}
		return Data{}, err
	}

	obs.Count(obs.InvoicesIssuedTotal, "issued")
	s.Logger.Info().Str("order_id", orderID).Str("invoice_number", data.Number).Int("fiscal_year", fy).Msg("invoice issued")
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicInvoiceIssued, o.TenantID, o.ID, map[string]any{
			"orderId":       orderID,
			"invoiceNumber": data.Number,
			"total":         data.Total,
		}); err != nil {
			s.Logger.Warn().Err(err).Str("order_id", orderID).Msg("emit invoice event")
		}
	}
	return data, nil
}

func (s *Service) existing(ctx context.Context, q dbgen.Querier, orderID pgtype.UUID) (Data, bool, error) {
	inv, err := q.GetInvoiceByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Data{}, false, nil
		}
		return Data{}, false, fmt.Errorf("load invoice: %w", err)
	}
	var data Data
	if err := json.Unmarshal(inv.Payload, &data); err != nil {
		return Data{}, false, fmt.Errorf("decode invoice %s: %w", inv.InvoiceNumber, err)
	}
	return data, true, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
