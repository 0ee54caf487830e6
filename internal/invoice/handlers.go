package invoice

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-resto/internal/common"
)

// Handler serves invoice data for completed orders.
type Handler struct {
	Svc *Service
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	data, err := h.Svc.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		if common.StatusFor(err) >= http.StatusInternalServerError {
			h.Svc.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("get invoice")
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}
