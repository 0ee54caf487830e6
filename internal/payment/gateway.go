package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/money"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/resilience"
)

// GatewayOrderRequest opens a payment order with the gateway.
type GatewayOrderRequest struct {
	Receipt  string       `json:"receipt"`
	Amount   money.Amount `json:"amount"`
	Currency string       `json:"currency"`
}

// GatewayOrder is the gateway's view of a payment order.
type GatewayOrder struct {
	ID       string       `json:"id"`
	Amount   money.Amount `json:"amount"`
	Currency string       `json:"currency"`
	Status   string       `json:"status"`
}

// Gateway abstracts the operations required from the upstream payment gateway.
type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error)
}

// HTTPGateway talks to the gateway's REST API with retries and a circuit breaker.
type HTTPGateway struct {
	BaseURL string
	KeyID   string
	Secret  string
	Client  resilience.HTTPClient
}

// NewHTTPGateway builds a gateway client whose transport is traced with otelhttp.
func NewHTTPGateway(baseURL, keyID, secret string, timeout time.Duration, maxAttempts int, retryBase time.Duration) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		KeyID:   keyID,
		Secret:  secret,
		Client: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("payment_gateway"),
			BaseBackoff: retryBase,
			MaxAttempts: maxAttempts,
			Jitter:      0.2,
			Timeout:     timeout,
		},
	}
}

// CreateOrder registers a payment order. Every failure surfaces as an
// external service error once retries are exhausted.
func (g *HTTPGateway) CreateOrder(ctx context.Context, in GatewayOrderRequest) (out GatewayOrder, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.Count(obs.GatewayRequestsTotal, "create_order", result)
		if obs.GatewayLatency != nil {
			obs.GatewayLatency.WithLabelValues("create_order").Observe(float64(time.Since(start).Milliseconds()))
		}
	}()

	body, err := json.Marshal(in)
	if err != nil {
		return GatewayOrder{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return GatewayOrder{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.KeyID, g.Secret)

	resp, err := g.Client.Do(ctx, req)
	if err != nil {
		return GatewayOrder{}, common.ExternalService("GATEWAY_UNAVAILABLE", "payment gateway unavailable", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return GatewayOrder{}, common.ExternalService("GATEWAY_UNAVAILABLE", "payment gateway response unreadable", err)
	}
	if resp.StatusCode >= 300 {
		return GatewayOrder{}, common.ExternalService("GATEWAY_REJECTED",
			"payment gateway rejected the order", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(payload, 256)))
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return GatewayOrder{}, common.ExternalService("GATEWAY_UNAVAILABLE", "payment gateway response invalid", err)
	}
	if out.ID == "" {
		return GatewayOrder{}, common.ExternalService("GATEWAY_UNAVAILABLE", "payment gateway response invalid", errors.New("missing order id"))
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
