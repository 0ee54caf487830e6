package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/ledger"
)

// Handler exposes the order endpoints.
type Handler struct {
	Svc *Service
}

type patchItemRequest struct {
	Qty *int64 `json:"qty" validate:"required,min=0,max=1000"`
}

type patchStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20, 100)
	views, total, err := h.Svc.List(r.Context(), ListFilter{
		Status:     r.URL.Query().Get("status"),
		LocationID: r.URL.Query().Get("locationId"),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": views,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in ItemInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "orderId"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req patchItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.Svc.UpdateItemQty(r.Context(), chi.URLParam(r, "orderId"), chi.URLParam(r, "itemId"), *req.Qty)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "orderId"), chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// PatchStatus updates the order status with state-machine validation.
func (h *Handler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var req patchStatusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	target, ok := ledger.ParseStatus(req.Status)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", nil)
		return
	}
	view, err := h.Svc.Transition(r.Context(), chi.URLParam(r, "orderId"), target)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !common.IsAppError(err) {
		h.Svc.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("order request failed")
	}
	common.WriteError(w, err)
}
