package handlers

import (
	"net/http"

	"github.com/edusys/activityhub/internal/services"
)

// Register handles POST /api/account/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.SignUpInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	user, err := h.svc.SignUp(r.Context(), in, h.bcryptCost)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("account created", envelope{"user": user}))
}

// Login handles POST /api/account/login and issues the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	p, err := h.svc.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		// Uniform 401 regardless of which check failed.
		if services.KindOf(err) == services.KindForbidden {
			writeJSON(w, http.StatusUnauthorized, envelope{"success": false, "message": err.Error()})
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	if err := h.sessions.Issue(w, r, p); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("signed in", envelope{
		"user_id": p.UserID,
		"role":    p.Role,
	}))
}

// Logout handles POST /api/account/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("signed out", nil))
}

// Me handles GET /api/account/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), principal(r).UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{"user": user}))
}
