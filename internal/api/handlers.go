package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/order-ledger/internal/domain/order"
	"github.com/example/order-ledger/internal/service"
	"github.com/example/order-ledger/internal/store"
)

type Handlers struct {
	creation *service.CreationService
	mutation *service.MutationService
	logger   *zap.Logger
}

func NewHandlers(creation *service.CreationService, mutation *service.MutationService, logger *zap.Logger) *Handlers {
	return &Handlers{
		creation: creation,
		mutation: mutation,
		logger:   logger,
	}
}

// CreateOrder handles the post-payment checkout callback. The caller asserts
// a confirmed payment; duplicates on the transaction id come back as 409
// with the existing order's id.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var payload order.CheckoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	o, err := h.creation.Create(r.Context(), payload)
	if err != nil {
		h.respondCreateError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"order":       o,
		"orderNumber": o.OrderNumber,
	})
}

func (h *Handlers) respondCreateError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		body := map[string]any{
			"success": false,
			"error":   validationErr.Error(),
		}
		if validationErr.Shipping {
			body["missingShippingFields"] = validationErr.Fields
		} else {
			body["missingFields"] = validationErr.Fields
		}
		respondJSON(w, http.StatusBadRequest, body)
		return
	}

	if errors.Is(err, service.ErrPaymentDataMissing) {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Payment has not been verified",
		})
		return
	}

	var dup *store.DuplicateTransactionError
	if errors.As(err, &dup) {
		respondJSON(w, http.StatusConflict, map[string]any{
			"success":         false,
			"error":           "An order already exists for this transaction",
			"existingOrderId": dup.ExistingOrderID,
		})
		return
	}

	h.logger.Error("order creation failed", zap.Error(err))
	respondJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "Failed to create order",
	})
}

// Admin handlers. The owner gate runs as middleware; anything reaching these
// is authorized. NotFound still applies when the order id is unknown.

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.mutation.List(r.Context())
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.mutation.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	o, err := h.mutation.Patch(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// DeleteOrder is the soft delete: orders are never removed, only cancelled.
func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := h.mutation.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Order cancelled"})
}

func (h *Handlers) AddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		Author  string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Note content is required",
		})
		return
	}

	o, err := h.mutation.AddNote(r.Context(), chi.URLParam(r, "id"), req.Content, req.Author)
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) AddShipment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Carrier        string `json:"carrier"`
		TrackingNumber string `json:"trackingNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackingNumber == "" {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Tracking number is required",
		})
		return
	}

	o, err := h.mutation.AddShipment(r.Context(), chi.URLParam(r, "id"), req.Carrier, req.TrackingNumber)
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) AddRefund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
		Reason string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Refund amount must be positive",
		})
		return
	}

	o, err := h.mutation.AddRefund(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Reason)
	if err != nil {
		h.respondAdminError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) respondAdminError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondNotFound(w)
		return
	}

	var forbidden *service.ForbiddenFieldError
	if errors.As(err, &forbidden) {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   forbidden.Error(),
		})
		return
	}

	h.logger.Error("order mutation failed", zap.Error(err))
	respondJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "Internal server error",
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondNotFound is shared between the authorization middleware and the
// handlers so an unauthorized caller and a missing order produce identical
// responses.
func respondNotFound(w http.ResponseWriter) {
	respondJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"error":   "Order not found",
	})
}
