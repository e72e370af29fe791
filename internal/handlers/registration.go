package handlers

import "net/http"

// MyRegistrations handles GET /api/registrations.
func (h *Handler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.MyRegistrations(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{"registrations": regs}))
}

// CancelRegistration handles POST /api/registrations/{id}/cancel.
func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid registration id")
		return
	}

	if err := h.svc.CancelRegistration(r.Context(), principal(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("registration cancelled", nil))
}

// Messages handles GET /api/messages.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Messages(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{"messages": msgs}))
}

// MarkMessageRead handles POST /api/messages/{id}/read.
func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid message id")
		return
	}

	if err := h.svc.MarkMessageRead(r.Context(), principal(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("marked read", nil))
}
