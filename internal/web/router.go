package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/edusys/activityhub/internal/auth"
	"github.com/edusys/activityhub/internal/handlers"
	"github.com/edusys/activityhub/internal/models"
)

// Options carries router wiring knobs.
type Options struct {
	CSRFKey []byte
	// Dev relaxes the CSRF Secure flag so plain-HTTP local runs work.
	Dev bool
}

// Router assembles the full HTTP surface.
func Router(h *handlers.Handler, sessions *auth.Sessions, log *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	protect := csrf.Protect(opts.CSRFKey,
		csrf.Secure(!opts.Dev),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid or missing CSRF token"}`))
		})))

	r.Group(func(api chi.Router) {
		api.Use(protect)

		// Hands the anti-forgery token to API clients; they echo it back in
		// the X-CSRF-Token header on every mutation.
		api.Get("/api/csrf", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"token":"` + csrf.Token(req) + `"}`))
		})

		// Accounts
		api.Post("/api/account/register", h.Register)
		api.Post("/api/account/login", h.Login)
		api.Post("/api/account/logout", h.Logout)
		api.With(sessions.RequireUser).Get("/api/account/me", h.Me)

		// Catalog: browsable anonymously, identity picked up when present.
		api.With(sessions.MaybeUser).Get("/api/activities", h.ListActivities)
		api.With(sessions.MaybeUser).Get("/api/activities/{id}", h.GetActivity)

		api.With(sessions.RequireRole(models.RoleAdmin)).
			Post("/api/activities", h.CreateActivity)
		api.With(sessions.RequireRole(models.RoleStudent)).
			Post("/api/activities/{id}/register", h.RegisterFree)

		// Interactions
		api.Group(func(ar chi.Router) {
			ar.Use(sessions.RequireUser)
			ar.Post("/api/activities/{id}/like", h.Like)
			ar.Post("/api/activities/{id}/comments", h.Comment)
			ar.Delete("/api/comments/{id}", h.DeleteComment)
		})

		// Cart & checkout
		api.Group(func(ar chi.Router) {
			ar.Use(sessions.RequireUser)
			ar.Get("/api/cart", h.Cart)
			ar.Post("/api/cart/items", h.AddToCart)
			ar.Delete("/api/cart/items/{id}", h.RemoveFromCart)
			ar.Post("/api/cart/items/{id}/checkout", h.Checkout)
		})

		// Registrations & notifications
		api.Group(func(ar chi.Router) {
			ar.Use(sessions.RequireUser)
			ar.Get("/api/registrations", h.MyRegistrations)
			ar.Post("/api/registrations/{id}/cancel", h.CancelRegistration)
			ar.Get("/api/messages", h.Messages)
			ar.Post("/api/messages/{id}/read", h.MarkMessageRead)
			ar.Get("/tickets/{code}.png", h.Ticket)
		})

		// Admin
		api.Route("/api/admin", func(ar chi.Router) {
			ar.Use(sessions.RequireRole(models.RoleAdmin))
			ar.Get("/dashboard", h.Dashboard)
			ar.Get("/users", h.ListUsers)
			ar.Get("/teachers", h.ListTeachers)
			ar.Post("/teachers", h.AddTeacher)
			ar.Delete("/teachers/{id}", h.DeleteTeacher)
			ar.Get("/registrations", h.ManageRegistrations)
			ar.Post("/registrations/{id}/approve", h.ApproveRegistration)
			ar.Post("/registrations/{id}/decline", h.DeclineRegistration)
			ar.Post("/checkin", h.Checkin)
			ar.Post("/activities/{id}/reconcile", h.Reconcile)
		})
	})

	return r
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
