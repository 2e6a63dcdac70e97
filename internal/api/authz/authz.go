// internal/api/authz/authz.go
package authz

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// AuthUser is the signed-in user resolved from the session token.
type AuthUser struct {
	ID      string
	Email   string
	IsStaff bool
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
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

func IsStaff(user *AuthUser) bool {
	return user != nil && user.IsStaff
}

func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil || user.ID == "" {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireStaff allows platform staff, who manage cancellation windows.
func RequireStaff(ctx context.Context) error {
	user, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	if !user.IsStaff {
		return ErrForbidden
	}
	return nil
}
