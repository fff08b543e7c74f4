package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kofiasare/kantamanto/internal/checkout"
	"github.com/kofiasare/kantamanto/internal/metrics"
	"github.com/kofiasare/kantamanto/internal/models"
	"github.com/kofiasare/kantamanto/internal/store"
)

// OrderHandler wires the checkout engine into the HTTP surface and serves
// order history for customers and admins.
type OrderHandler struct {
	Store   *store.Store
	Engine  *checkout.Engine
	Metrics *metrics.CheckoutMetrics
}

// Checkout converts the user's cart into an order.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request, userID int) {
	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Engine.Checkout(r.Context(), userID, req)
	if err != nil {
		h.countCheckout("failure")
		respondDomainError(w, err)
		return
	}

	h.countCheckout("success")
	respondJSON(w, http.StatusCreated, result)
}

// VerifyPayment confirms an order once the gateway reports the charge
// succeeded.
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request, userID int) {
	reference := r.PathValue("reference")
	if reference == "" {
		respondError(w, http.StatusBadRequest, "Payment reference is required")
		return
	}

	result, err := h.Engine.VerifyPayment(r.Context(), userID, reference)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListOrders returns the authenticated user's order history.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request, userID int) {
	orders, err := h.Store.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order and its lines. Customers only see their own.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request, userID int) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}
	order, err := h.Store.GetOrderByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if order.UserID != userID {
		respondDomainError(w, models.ErrNotAuthorized)
		return
	}
	items, err := h.Store.GetOrderItems(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"order": order,
		"items": items,
	})
}

// ListAllOrders is the admin view over every order.
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request, _ int) {
	status := r.URL.Query().Get("status")
	if status != "" && !models.OrderStatus(status).Valid() {
		respondError(w, http.StatusBadRequest, "Invalid order status")
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	orders, err := h.Store.GetAllOrders(r.Context(), models.OrderStatus(status), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatus moves an order along its lifecycle.
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, _ int) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order id")
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	next := models.OrderStatus(in.Status)
	if !next.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid order status")
		return
	}
	if err := h.Store.TransitionOrderStatus(r.Context(), id, next); err != nil {
		respondDomainError(w, err)
		return
	}
	slog.Info("Order status updated", "order_id", id, "status", next)
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Order status updated"})
}

func (h *OrderHandler) countCheckout(result string) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.Checkouts.WithLabelValues(result).Inc()
}
