package auth

import (
	"context"

	"github.com/edusys/activityhub/internal/models"
)

// Principal is the authenticated caller, resolved once by session middleware
// and passed explicitly into every service operation. Nothing below the
// handlers reads identity from ambient state.
type Principal struct {
	UserID uint
	Role   string
}

func (p Principal) IsAdmin() bool   { return p.Role == models.RoleAdmin }
func (p Principal) IsParent() bool  { return p.Role == models.RoleParent }
func (p Principal) IsStudent() bool { return p.Role == models.RoleStudent }

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext extracts the principal set by RequireUser.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
