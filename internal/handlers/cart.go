package handlers

import (
	"net/http"

	"github.com/kofiasare/kantamanto/internal/store"
)

// CartHandler manages the authenticated user's shopping cart.
type CartHandler struct {
	Store *store.Store
}

// GetCart returns the cart lines plus a running total.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request, userID int) {
	items, err := h.Store.GetCartItems(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	total, err := h.Store.GetCartTotal(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

// AddToCart adds a product, merging quantities on repeat adds.
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request, userID int) {
	var in struct {
		ProductID int `json:"product_id"`
		Quantity  int `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Store.AddToCart(r.Context(), userID, in.ProductID, in.Quantity); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"detail": "Added to cart"})
}

// UpdateCartItem sets the quantity of an existing cart line.
func (h *CartHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request, userID int) {
	itemID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid cart item id")
		return
	}
	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Store.UpdateCartItem(r.Context(), userID, itemID, in.Quantity); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Cart updated"})
}

// RemoveCartItem deletes a single cart line.
func (h *CartHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request, userID int) {
	itemID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid cart item id")
		return
	}
	if err := h.Store.RemoveCartItem(r.Context(), userID, itemID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Removed from cart"})
}

// ClearCart empties the user's cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request, userID int) {
	if err := h.Store.ClearCart(r.Context(), userID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Cart cleared"})
}
