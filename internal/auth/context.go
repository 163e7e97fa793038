// ABOUTME: Authenticated principal and its propagation through request contexts
// ABOUTME: Provides WithPrincipal/FromContext for handlers that need the caller identity

package auth

import (
	"context"

	"github.com/classifieds/backoffice/internal/store"
)

// Principal is the authenticated identity resolved for the current request.
// ID, Username and Role come from the token; Email is read from the store.
type Principal struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     store.Role `json:"role"`
}

// HasRole reports whether the principal holds one of roles.
func (p *Principal) HasRole(roles ...store.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// principalContextKey is the key type for storing Principal in context.Context.
type principalContextKey struct{}

// WithPrincipal returns a new context with the Principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// FromContext retrieves the Principal from the context, returning nil if not present.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
