package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/noah-isme/backend-resto/internal/common"
	dbgen "github.com/noah-isme/backend-resto/internal/db/gen"
	"github.com/noah-isme/backend-resto/internal/ledger"
	"github.com/noah-isme/backend-resto/internal/money"
	"github.com/noah-isme/backend-resto/internal/order"
)

// CheckoutView is what the client needs to open the gateway checkout.
type CheckoutView struct {
	OrderID        string       `json:"orderId"`
	GatewayOrderID string       `json:"gatewayOrderId"`
	Amount         money.Amount `json:"amount"`
	Currency       string       `json:"currency"`
	KeyID          string       `json:"keyId"`
}

// Service opens gateway orders for placed orders.
type Service struct {
	Q        dbgen.Querier
	Gateway  Gateway
	KeyID    string
	Currency string
	Logger   zerolog.Logger
}

// CreateGatewayOrder registers the order total with the gateway and stores
// the returned gateway order id. The id is written only once, so calling it
// again, concurrently or not, returns the stored id.
func (s *Service) CreateGatewayOrder(ctx context.Context, orderID string) (CheckoutView, error) {
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CreateGatewayOrder")
	defer span.End()

	id, err := order.ParseUUID(orderID)
	if err != nil {
		return CheckoutView{}, common.Validation("BAD_REQUEST", "invalid order id")
	}
	o, err := order.LoadForTenant(ctx, s.Q, id)
	if err != nil {
		return CheckoutView{}, err
	}
	if o.GatewayOrderID.Valid {
		return s.view(o), nil
	}
	if !ledger.AwaitingPayment(ledger.Status(o.Status)) {
		return CheckoutView{}, common.Conflict("INVALID_STATE", "order is not awaiting payment")
	}
	if s.Gateway == nil {
		return CheckoutView{}, common.ExternalService("GATEWAY_UNAVAILABLE", "payment gateway not configured", nil)
	}
	gw, err := s.Gateway.CreateOrder(ctx, GatewayOrderRequest{
		Receipt:  orderID,
		Amount:   o.Total,
		Currency: s.currency(),
	})
	if err != nil {
		span.RecordError(err)
		s.Logger.Error().Err(err).Str("order_id", orderID).Msg("create gateway order")
		return CheckoutView{}, err
	}
	updated, err := s.Q.SetOrderGatewayOrderID(ctx, dbgen.SetOrderGatewayOrderIDParams{
		ID:             id,
		GatewayOrderID: pgtype.Text{String: gw.ID, Valid: true},
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return s.storedView(ctx, id, gw.ID)
	}
	if err != nil {
		return CheckoutView{}, fmt.Errorf("store gateway order: %w", err)
	}
	s.Logger.Info().Str("order_id", orderID).Str("gateway_order_id", gw.ID).Int64("amount", o.Total).Msg("gateway order created")
	return s.view(updated), nil
}

// storedView resolves a lost write of the gateway order id. When another
// request stored its id first, every caller is handed that one and the
// gateway order created here is left unused.
func (s *Service) storedView(ctx context.Context, id pgtype.UUID, discarded string) (CheckoutView, error) {
	o, err := order.LoadForTenant(ctx, s.Q, id)
	if err != nil {
		return CheckoutView{}, err
	}
	if !o.GatewayOrderID.Valid {
		return CheckoutView{}, common.Conflict("INVALID_STATE", "order status changed concurrently")
	}
	s.Logger.Warn().Str("order_id", order.UUIDString(id)).Str("gateway_order_id", o.GatewayOrderID.String).
		Str("discarded_gateway_order_id", discarded).Msg("gateway order already stored, discarding duplicate")
	return s.view(o), nil
}

func (s *Service) view(o dbgen.Order) CheckoutView {
	return CheckoutView{
		OrderID:        order.UUIDString(o.ID),
		GatewayOrderID: o.GatewayOrderID.String,
		Amount:         o.Total,
		Currency:       s.currency(),
		KeyID:          s.KeyID,
	}
}

func (s *Service) currency() string {
	if s.Currency != "" {
		return s.Currency
	}
	return "INR"
}
