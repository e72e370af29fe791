package handlers

import (
	"net/http"
	"strconv"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/services"
)

// ListActivities handles GET /api/activities. Anonymous callers are fine;
// the "registered" filter just comes back empty for them.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	q := services.ListQuery{
		Filter: r.URL.Query().Get("filter"),
		Search: r.URL.Query().Get("search"),
		Sort:   r.URL.Query().Get("sort"),
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		q.Page = page
	}

	var pr *auth.Principal
	if p, okAuth := auth.FromContext(r.Context()); okAuth {
		pr = &p
	}

	res, err := h.svc.ListActivities(r.Context(), pr, q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{
		"activities":  res.Activities,
		"page":        res.Page,
		"total_pages": res.TotalPages,
		"total_count": res.TotalCount,
	}))
}

// GetActivity handles GET /api/activities/{id}.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid activity id")
		return
	}

	var pr *auth.Principal
	if p, okAuth := auth.FromContext(r.Context()); okAuth {
		pr = &p
	}

	details, err := h.svc.GetActivity(r.Context(), pr, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("", envelope{
		"activity":          details.Activity,
		"comments":          details.Comments,
		"is_registered":     details.IsRegistered,
		"has_liked":         details.HasLiked,
		"can_register_free": details.CanRegisterFree,
	}))
}

// CreateActivity handles POST /api/activities (admin).
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var draft services.ActivityDraft
	if err := decodeJSON(r, &draft); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	activity, err := h.svc.CreateActivity(r.Context(), principal(r), draft)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("activity created", envelope{"activity": activity}))
}

// RegisterFree handles POST /api/activities/{id}/register (student).
func (h *Handler) RegisterFree(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid activity id")
		return
	}

	reg, err := h.svc.RegisterFree(r.Context(), principal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("registration confirmed", envelope{"registration": reg}))
}

// Like handles POST /api/activities/{id}/like.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid activity id")
		return
	}

	res, err := h.svc.ToggleLike(r.Context(), principal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	msg := "like removed"
	if res.HasLiked {
		msg = "activity liked"
	}
	writeJSON(w, http.StatusOK, ok(msg, envelope{
		"has_liked":   res.HasLiked,
		"likes_count": res.LikesCount,
	}))
}

// Comment handles POST /api/activities/{id}/comments.
func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid activity id")
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	res, err := h.svc.AddComment(r.Context(), principal(r), id, in.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ok("comment posted", envelope{
		"comment":        res.Comment,
		"comments_count": res.CommentsCount,
	}))
}

// DeleteComment handles DELETE /api/comments/{id}.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, okID := urlID(r, "id")
	if !okID {
		badRequest(w, "invalid comment id")
		return
	}

	remaining, err := h.svc.DeleteComment(r.Context(), principal(r), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("comment deleted", envelope{"comments_count": remaining}))
}
