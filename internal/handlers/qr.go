package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
)

// Ticket handles GET /tickets/{code}.png: a QR of the registration code that
// the admin check-in endpoint accepts.
func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSuffix(chi.URLParam(r, "code"), ".png")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	reg, err := h.svc.TicketRegistration(r.Context(), principal(r), code)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	png, err := qrcode.Encode(reg.Code, qrcode.Medium, 256)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
