package handlers

import (
	"net/http"

	"github.com/edusys/activityhub/internal/services"
)

// Dashboard handles GET /api/admin/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{"stats": stats}))
}

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{"users": users}))
}

// ListTeachers handles GET /api/admin/teachers.
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.svc.ListTeachers(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{"teachers": teachers}))
}

// AddTeacher handles POST /api/admin/teachers.
func (h *Handler) AddTeacher(w http.ResponseWriter, r *http.Request) {
	var draft services.TeacherDraft
	if err := decodeJSON(r, &draft); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	teacher, err := h.svc.AddTeacher(r.Context(), principal(r), draft)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("teacher added", envelope{"teacher": teacher}))
}

// DeleteTeacher handles DELETE /api/admin/teachers/{id}.
func (h *Handler) DeleteTeacher(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid teacher id")
		return
	}

	if err := h.svc.DeleteTeacher(r.Context(), principal(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("teacher deleted", nil))
}

// ManageRegistrations handles GET /api/admin/registrations.
func (h *Handler) ManageRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.AllRegistrations(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{"registrations": regs}))
}

// ApproveRegistration handles POST /api/admin/registrations/{id}/approve.
func (h *Handler) ApproveRegistration(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid registration id")
		return
	}

	if err := h.svc.ApproveRegistration(r.Context(), principal(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("registration approved", nil))
}

// DeclineRegistration handles POST /api/admin/registrations/{id}/decline.
func (h *Handler) DeclineRegistration(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid registration id")
		return
	}

	if err := h.svc.DeclineRegistration(r.Context(), principal(r), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("registration declined", nil))
}

// Checkin handles POST /api/admin/checkin.
func (h *Handler) Checkin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &in); err != nil || in.Code == "" {
		badRequest(w, "code is required")
		return
	}

	reg, err := h.svc.Checkin(r.Context(), principal(r), in.Code)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("checked in", envelope{"registration": reg}))
}

// Reconcile handles POST /api/admin/activities/{id}/reconcile.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid activity id")
		return
	}

	report, err := h.svc.ReconcileActivityCounters(r.Context(), principal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	msg := "counters are consistent"
	if report.Drifted {
		msg = "counter drift repaired"
	}
	writeJSON(w, http.StatusOK, ok(msg, envelope{"report": report}))
}
