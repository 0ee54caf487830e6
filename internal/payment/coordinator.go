package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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
	"github.com/noah-isme/backend-resto/internal/money"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/order"
)

// Sources of a payment event.
const (
	SourceCapture = "capture"
	SourceWebhook = "webhook"
)

// Outcomes recorded on an applied payment event.
const (
	OutcomeAccepted       = "accepted"
	OutcomeIgnored        = "ignored"
	OutcomeDuplicate      = "duplicate"
	OutcomeAmountMismatch = "amount_mismatch"
)

const eventCaptured = "payment.captured"

// CaptureInput is the client-initiated confirmation of a gateway payment.
type CaptureInput struct {
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required,max=128"`
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required,max=128"`
	Signature        string `json:"signature" validate:"required,max=256"`
	OrderID          string `json:"orderId" validate:"required,uuid"`
	Amount           *int64 `json:"amount" validate:"omitempty,min=0"`
}

// Result reports what Apply did. Duplicate results carry the outcome stored
// by the first application.
type Result struct {
	Outcome   string       `json:"outcome"`
	Duplicate bool         `json:"duplicate"`
	OrderID   string       `json:"orderId,omitempty"`
	Status    string       `json:"status,omitempty"`
	Order     dbgen.Order  `json:"-"`
	Amount    money.Amount `json:"-"`
}

// application is the normalized form of a capture or webhook event.
type application struct {
	Source           string
	Order            dbgen.Order
	GatewayPaymentID string
	GatewayOrderID   string
	EventID          string
	EventType        string
	Amount           *int64
	Payload          []byte
}

// Coordinator applies gateway payments to orders exactly once per gateway
// payment id. Deduplication rests on the unique index over
// payment_events.gateway_payment_id, so it holds across instances and restarts.
type Coordinator struct {
	Q             dbgen.Querier
	Tx            db.Transactor
	Events        *events.Bus
	Logger        zerolog.Logger
	CaptureSecret string
	WebhookSecret string
}

// Capture verifies the client signature and applies the payment to the
// caller's order.
func (c *Coordinator) Capture(ctx context.Context, in CaptureInput) (Result, error) {
	ctx, span := otel.Tracer("payment.Coordinator").Start(ctx, "PaymentCoordinator.Capture")
	defer span.End()
	span.SetAttributes(attribute.String("payment.gateway_payment_id", in.GatewayPaymentID))

	if !VerifyCapture(c.CaptureSecret, in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		obs.Count(obs.PaymentEventsTotal, SourceCapture, "rejected")
		c.Logger.Warn().Str("gateway_payment_id", in.GatewayPaymentID).Str("source", SourceCapture).Msg("payment signature rejected")
		return Result{}, common.Authentication("INVALID_SIGNATURE", "payment signature verification failed")
	}
	id, err := order.ParseUUID(in.OrderID)
	if err != nil {
		return Result{}, common.Validation("BAD_REQUEST", "invalid order id")
	}
	o, err := order.LoadForTenant(ctx, c.Q, id)
	if err != nil {
		return Result{}, err
	}
	payload, _ := json.Marshal(map[string]any{
		"gatewayPaymentId": in.GatewayPaymentID,
		"gatewayOrderId":   in.GatewayOrderID,
		"orderId":          in.OrderID,
		"amount":           in.Amount,
	})
	res, err := c.apply(ctx, application{
		Source:           SourceCapture,
		Order:            o,
		GatewayPaymentID: in.GatewayPaymentID,
		GatewayOrderID:   in.GatewayOrderID,
		EventType:        eventCaptured,
		Amount:           in.Amount,
		Payload:          payload,
	})
	if err != nil {
		return Result{}, err
	}
	if res.Outcome == OutcomeAmountMismatch {
		mismatch := common.Validation("AMOUNT_MISMATCH", "captured amount does not match order total")
		if !res.Duplicate && in.Amount != nil {
			mismatch = mismatch.WithDetails(map[string]int64{"expected": res.Amount, "captured": *in.Amount})
		}
		return res, mismatch
	}
	return res, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	ID      string `json:"id"`
	Payload struct {
		Payment struct {
			ID       string `json:"id"`
			OrderID  string `json:"order_id"`
			Amount   *int64 `json:"amount"`
			Currency string `json:"currency"`
			Status   string `json:"status"`
		} `json:"payment"`
	} `json:"payload"`
}

// Webhook verifies a gateway-signed body and, for payment.captured events,
// applies the payment to the order holding the gateway order id.
func (c *Coordinator) Webhook(ctx context.Context, body []byte, signature string) (Result, error) {
	ctx, span := otel.Tracer("payment.Coordinator").Start(ctx, "PaymentCoordinator.Webhook")
	defer span.End()

	if !VerifyWebhook(c.WebhookSecret, body, signature) {
		obs.Count(obs.PaymentEventsTotal, SourceWebhook, "rejected")
		c.Logger.Warn().Str("source", SourceWebhook).Msg("payment signature rejected")
		return Result{}, common.Authentication("INVALID_SIGNATURE", "payment signature verification failed")
	}
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return Result{}, common.Validation("BAD_REQUEST", "invalid webhook payload")
	}
	if ev.Event != eventCaptured {
		obs.Count(obs.PaymentEventsTotal, SourceWebhook, OutcomeIgnored)
		c.Logger.Debug().Str("event", ev.Event).Str("event_id", ev.ID).Msg("webhook event ignored")
		return Result{Outcome: OutcomeIgnored}, nil
	}
	p := ev.Payload.Payment
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.OrderID) == "" {
		return Result{}, common.Validation("BAD_REQUEST", "payment id and order id are required")
	}
	span.SetAttributes(attribute.String("payment.gateway_payment_id", p.ID))

	o, err := c.Q.GetOrderByGatewayOrderID(ctx, pgtype.Text{String: p.OrderID, Valid: true})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, common.NotFound("ORDER_NOT_FOUND", "no order for gateway order id")
		}
		return Result{}, fmt.Errorf("lookup gateway order: %w", err)
	}
	return c.apply(ctx, application{
		Source:           SourceWebhook,
		Order:            o,
		GatewayPaymentID: p.ID,
		GatewayOrderID:   p.OrderID,
		EventID:          ev.ID,
		EventType:        ev.Event,
		Amount:           p.Amount,
		Payload:          body,
	})
}

// apply records the payment event and accepts the order in one transaction.
// A concurrent insert of the same gateway payment id blocks on the unique
// index and then reads the winner's applied row under FOR UPDATE.
func (c *Coordinator) apply(ctx context.Context, in application) (Result, error) {
	var res Result
	err := c.Tx.InTx(ctx, func(q dbgen.Querier) error {
		res = Result{}
		payload := in.Payload
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		amount := pgtype.Int8{}
		if in.Amount != nil {
			amount = pgtype.Int8{Int64: *in.Amount, Valid: true}
		}
		eventID := pgtype.Text{}
		if in.EventID != "" {
			eventID = pgtype.Text{String: in.EventID, Valid: true}
		}
		if _, err := q.InsertPaymentEvent(ctx, dbgen.InsertPaymentEventParams{
			TenantID:         in.Order.TenantID,
			OrderID:          in.Order.ID,
			GatewayPaymentID: in.GatewayPaymentID,
			GatewayOrderID:   in.GatewayOrderID,
			EventID:          eventID,
			EventType:        in.EventType,
			Source:           in.Source,
			SignatureValid:   true,
			Amount:           amount,
			Payload:          payload,
		}); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("insert payment event: %w", err)
		}

		ev, err := q.GetPaymentEventByGatewayPaymentIDForUpdate(ctx, in.GatewayPaymentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// event id seen before under a different payment id
				res = Result{Outcome: OutcomeDuplicate, Duplicate: true}
				return nil
			}
			return fmt.Errorf("lock payment event: %w", err)
		}
		if ev.AppliedAt.Valid {
			res = Result{Outcome: ev.Outcome, Duplicate: true, OrderID: order.UUIDString(ev.OrderID)}
			return nil
		}

		current, err := q.GetOrder(ctx, in.Order.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return common.NotFound("ORDER_NOT_FOUND", "order not found")
			}
			return fmt.Errorf("load order: %w", err)
		}
		if !current.GatewayOrderID.Valid || current.GatewayOrderID.String != in.GatewayOrderID {
			return common.Validation("GATEWAY_ORDER_MISMATCH", "gateway order id does not belong to this order")
		}

		// A mismatched amount is recorded as applied so redelivery stops,
		// and the order is left for an operator.
		outcome := OutcomeIgnored
		switch {
		case in.Amount != nil && *in.Amount != current.Total:
			outcome = OutcomeAmountMismatch
		case ledger.AwaitingPayment(ledger.Status(current.Status)):
			n, err := q.AcceptPaidOrder(ctx, dbgen.AcceptPaidOrderParams{
				ID:               current.ID,
				GatewayPaymentID: pgtype.Text{String: in.GatewayPaymentID, Valid: true},
			})
			if err != nil {
				return fmt.Errorf("accept order: %w", err)
			}
			if n == 1 {
				outcome = OutcomeAccepted
				if current, err = q.GetOrder(ctx, current.ID); err != nil {
					return fmt.Errorf("reload order: %w", err)
				}
			}
		}
		if err := q.MarkPaymentEventApplied(ctx, dbgen.MarkPaymentEventAppliedParams{
			ID:       ev.ID,
			Outcome:  outcome,
			OrderID:  current.ID,
			TenantID: current.TenantID,
		}); err != nil {
			return fmt.Errorf("mark payment event: %w", err)
		}
		res = Result{
			Outcome: outcome,
			OrderID: order.UUIDString(current.ID),
			Status:  current.Status,
			Order:   current,
			Amount:  current.Total,
		}
		return nil
	})
	if err != nil {
		obs.Count(obs.PaymentEventsTotal, in.Source, "error")
		return Result{}, err
	}

	log := c.Logger.Info().
		Str("source", in.Source).
		Str("gateway_payment_id", in.GatewayPaymentID).
		Str("order_id", order.UUIDString(in.Order.ID)).
		Str("outcome", res.Outcome)
	if res.Duplicate {
		obs.Count(obs.PaymentEventsTotal, in.Source, OutcomeDuplicate)
		log.Bool("duplicate", true).Msg("payment event already applied")
		return res, nil
	}
	obs.Count(obs.PaymentEventsTotal, in.Source, res.Outcome)
	if res.Outcome == OutcomeAmountMismatch {
		obs.Count(obs.LedgerInvariantViolationsTotal, "payment_amount")
		c.Logger.Error().
			Str("source", in.Source).
			Str("gateway_payment_id", in.GatewayPaymentID).
			Str("order_id", res.OrderID).
			Int64("expected", res.Amount).
			Int64("captured", *in.Amount).
			Msg("captured amount does not match order total, order left unpaid")
		return res, nil
	}
	log.Msg("payment event applied")

	c.emit(ctx, events.TopicPaymentCaptured, res.Order, map[string]any{
		"orderId":          res.OrderID,
		"gatewayPaymentId": in.GatewayPaymentID,
		"gatewayOrderId":   in.GatewayOrderID,
		"amount":           res.Amount,
		"source":           in.Source,
		"outcome":          res.Outcome,
	})
	if res.Outcome == OutcomeAccepted {
		c.emit(ctx, events.TopicOrderStatusChanged, res.Order, map[string]any{
			"orderId": res.OrderID,
			"from":    ledger.StatusPlaced,
			"to":      ledger.StatusAccepted,
		})
	}
	return res, nil
}

func (c *Coordinator) emit(ctx context.Context, topic string, o dbgen.Order, payload any) {
	if c.Events == nil {
		return
	}
	if _, err := c.Events.Emit(ctx, topic, o.TenantID, o.ID, payload); err != nil {
		c.Logger.Warn().Err(err).Str("topic", topic).Str("order_id", order.UUIDString(o.ID)).Msg("emit payment event")
	}
}
