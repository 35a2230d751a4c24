package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/bookshop/internal/service"
	"github.com/utafrali/bookshop/pkg/httputil"
	"github.com/utafrali/bookshop/pkg/validator"
)

// StorefrontHandler handles HTTP requests for storefront views.
type StorefrontHandler struct {
	service *service.StorefrontService
	logger  *slog.Logger
}

// NewStorefrontHandler creates a new storefront HTTP handler.
func NewStorefrontHandler(svc *service.StorefrontService, logger *slog.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		service: svc,
		logger:  logger,
	}
}

// Mount handles POST /api/v1/views
func (h *StorefrontHandler) Mount(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Mount(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", "/api/v1/views/"+view.ID)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: toViewResponse(view)})
}

// GetView handles GET /api/v1/views/{viewId}
func (h *StorefrontHandler) GetView(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetView(r.Context(), chi.URLParam(r, "viewId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toViewResponse(view)})
}

// SetQuantity handles PUT /api/v1/views/{viewId}/items/{index}/quantity
func (h *StorefrontHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	index, ok := httputil.ParseIndex(w, chi.URLParam(r, "index"))
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.SetQuantity(r.Context(), chi.URLParam(r, "viewId"), index, string(*req.Quantity))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toViewResponse(view)})
}

// ConfirmPurchase handles POST /api/v1/views/{viewId}/items/{index}/purchase
func (h *StorefrontHandler) ConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	index, ok := httputil.ParseIndex(w, chi.URLParam(r, "index"))
	if !ok {
		return
	}

	view, err := h.service.ConfirmPurchase(r.Context(), chi.URLParam(r, "viewId"), index)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toViewResponse(view)})
}

// ToggleDiscount handles POST /api/v1/views/{viewId}/discount/toggle
func (h *StorefrontHandler) ToggleDiscount(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ToggleDiscount(r.Context(), chi.URLParam(r, "viewId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toViewResponse(view)})
}

// Unmount handles DELETE /api/v1/views/{viewId}
func (h *StorefrontHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unmount(r.Context(), chi.URLParam(r, "viewId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "unmounted"}})
}
