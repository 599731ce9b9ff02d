package authz

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// RoleAdmin is the only role name with elevated access. Captaincy is tracked
// on team memberships but is not an authorization scope.
const RoleAdmin = "admin"

// AuthUser is the request-scoped identity resolved from the session cookie.
type AuthUser struct {
	ID          int64
	GoogleID    string
	Email       string
	DisplayName string
	RoleID      *int64
	RoleName    string
	CreatedAt   time.Time
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx. It returns nil if
// ctx is nil, if no user is stored, or if the stored value has a different
// type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// RequireAuthenticated reports whether the request carries a resolved user.
func RequireAuthenticated(ctx context.Context) error {
	if UserFromContext(ctx) == nil {
		return ErrUnauthenticated
	}
	return nil
}

// RequireRole allows the request only when the session user carries the
// given role. A missing session yields ErrUnauthenticated; a session with a
// different role yields ErrForbidden. The two outcomes are distinct on
// purpose.
func RequireRole(ctx context.Context, role string) error {
	user := UserFromContext(ctx)
	if user == nil {
		return ErrUnauthenticated
	}
	if !strings.EqualFold(user.RoleName, role) {
		return ErrForbidden
	}
	return nil
}

// IsAdmin reports whether the given AuthUser carries the admin role.
func IsAdmin(user *AuthUser) bool {
	return user != nil && strings.EqualFold(user.RoleName, RoleAdmin)
}
