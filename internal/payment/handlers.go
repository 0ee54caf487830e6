package payment

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-resto/internal/common"
)

const maxWebhookBody = 1 << 20

// Handler exposes the payment endpoints.
type Handler struct {
	Svc         *Service
	Coordinator *Coordinator
}

// GatewayOrder opens a gateway checkout for the order in the path.
func (h *Handler) GatewayOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.CreateGatewayOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Capture confirms a client-side payment.
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	var in CaptureInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.Coordinator.Capture(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "data": res})
}

// Webhook receives gateway notifications. Unhandled event types are
// acknowledged so the gateway stops redelivering them.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "webhook body too large", nil)
		return
	}
	res, err := h.Coordinator.Webhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ignored": res.Outcome == OutcomeIgnored,
		"data":    res,
	})
}
