package handlers

import "net/http"

// Cart handles GET /api/cart.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Cart(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{"items": items}))
}

// AddToCart handles POST /api/cart/items.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ActivityID uint `json:"activity_id"`
	}
	if err := decodeJSON(r, &in); err != nil || in.ActivityID == 0 {
		badRequest(w, "activity_id is required")
		return
	}

	if err := h.svc.AddToCart(r.Context(), principal(r), in.ActivityID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("added to cart", nil))
}

// RemoveFromCart handles DELETE /api/cart/items/{id}.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid cart item id")
		return
	}

	if err := h.svc.RemoveFromCart(r.Context(), principal(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("removed from cart", nil))
}

// Checkout handles POST /api/cart/items/{id}/checkout (parent or admin).
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid cart item id")
		return
	}

	res, err := h.svc.Checkout(r.Context(), principal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if res.AlreadyPaid {
		writeJSON(w, http.StatusOK, ok("this activity was already paid for", envelope{
			"already_paid": true,
			"registration": res.Registration,
		}))
		return
	}
	writeJSON(w, http.StatusOK, ok("payment completed", envelope{
		"payment":      res.Payment,
		"registration": res.Registration,
	}))
}
