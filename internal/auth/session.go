package auth

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "activityhub_session"

	keyUserID = "uid"
	keyRole   = "role"
)

// Sessions wraps the gorilla cookie store behind the three operations the
// handlers need.
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions builds an encrypted cookie store. blockKey must be 16 or 32
// bytes; secure controls the cookie Secure flag (off in dev over plain HTTP).
func NewSessions(hashKey, blockKey []byte, secure bool) *Sessions {
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

// Issue writes a signed session cookie for p.
func (s *Sessions) Issue(w http.ResponseWriter, r *http.Request, p Principal) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values[keyUserID] = p.UserID
	sess.Values[keyRole] = p.Role
	return sess.Save(r, w)
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Resolve returns the principal carried by the request cookie, if any.
func (s *Sessions) Resolve(r *http.Request) (Principal, bool) {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return Principal{}, false
	}
	uid, ok := sess.Values[keyUserID].(uint)
	if !ok || uid == 0 {
		return Principal{}, false
	}
	role, _ := sess.Values[keyRole].(string)
	return Principal{UserID: uid, Role: role}, true
}
