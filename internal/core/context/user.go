// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"ledgerpulse/internal/core/id"
)

// UserContext contains the authenticated caller's identity.
// OwnerID scopes every ledger read and write; cross-owner access is a
// security invariant, not an optimization.
type UserContext struct {
	UserID    string
	OwnerID   id.ID
	Email     string
	Roles     []string
	SessionID string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetOwnerID returns the owning account ID from context, or the nil ID
// when the request is unauthenticated.
func GetOwnerID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.OwnerID
	}
	return id.Nil()
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
