package handler

import (
	"net/http"

	"kart-admin/internal/orderstatus"
	"kart-admin/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderHandler handles the order-only endpoints.
type OrderHandler struct {
	orders *service.OrderPage
	logger zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders *service.OrderPage, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger.With().Str("handler", "order").Logger(),
	}
}

// StatusOption is one selectable status with its display style.
type StatusOption struct {
	Value   string              `json:"value"`
	Display orderstatus.Display `json:"display"`
}

// StatusesResponse lists both status axes and the transition table in force.
type StatusesResponse struct {
	Statuses        []StatusOption          `json:"statuses"`
	PaymentStatuses []StatusOption          `json:"payment_statuses"`
	Transitions     orderstatus.Transitions `json:"transitions,omitempty"`
}

// StatusRequest moves an order to a new status.
type StatusRequest struct {
	Status string `json:"status"`
}

// Statuses handles GET /api/orders/statuses.
func (h *OrderHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	resp := StatusesResponse{Transitions: h.orders.Workflow().Transitions()}
	for _, s := range orderstatus.Statuses() {
		resp.Statuses = append(resp.Statuses, StatusOption{Value: s, Display: orderstatus.Classify(s)})
	}
	for _, s := range orderstatus.PaymentStatuses() {
		resp.PaymentStatuses = append(resp.PaymentStatuses, StatusOption{Value: s, Display: orderstatus.ClassifyPayment(s)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PUT /api/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}

	entity, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}
