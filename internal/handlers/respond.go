// Package handlers is the JSON boundary: decode the request, hand it to the
// service layer, translate the error kind into an HTTP status. No business
// rules live here.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/services"
)

// Handler bundles what every endpoint needs.
type Handler struct {
	svc        *services.Service
	sessions   *auth.Sessions
	log        *zap.Logger
	bcryptCost int
}

func New(svc *services.Service, sessions *auth.Sessions, log *zap.Logger, bcryptCost int) *Handler {
	return &Handler{svc: svc, sessions: sessions, log: log, bcryptCost: bcryptCost}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// envelope is the {success, message, ...} shape the AJAX endpoints answer in.
type envelope map[string]any

func ok(message string, extra envelope) envelope {
	e := envelope{"success": true, "message": message}
	for k, v := range extra {
		e[k] = v
	}
	return e
}

// writeServiceError maps a service error kind onto an HTTP status. Internal
// errors are logged with their cause and answered generically.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status := http.StatusInternalServerError
	message := err.Error()

	switch kind {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindConflict, services.KindCapacity:
		status = http.StatusConflict
	case services.KindForbidden:
		status = http.StatusForbidden
	default:
		h.log.Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
		message = "something went wrong, please try again"
	}
	writeJSON(w, status, envelope{"success": false, "message": message})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{"success": false, "message": msg})
}

// urlID parses the {param} route segment as an id.
func urlID(r *http.Request, param string) (uint, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// principal pulls the identity RequireUser stored; routes behind the
// middleware can rely on it being present.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
