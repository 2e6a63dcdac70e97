// internal/api/auth/clerk.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/api/authz"
)

const (
	sessionCookieName = "__session"
	staffRole         = "admin"
)

// clerkInitialized indicates whether the Clerk SDK has been initialized
var clerkInitialized bool

// sessionClaims are the custom claims the session token template adds:
// the user's primary email and public metadata.
type sessionClaims struct {
	Email    string `json:"email"`
	Metadata struct {
		Role string `json:"role"`
	} `json:"metadata"`
}

// InitClerk initializes Clerk SDK with the secret key
func InitClerk(secretKey string) {
	if secretKey == "" {
		log.Warn().Msg("Clerk secret key not configured")
		return
	}
	clerk.SetKey(secretKey)
	clerkInitialized = true
	log.Info().Msg("Clerk SDK initialized")
}

// SessionToken returns the raw session token from the Clerk cookie or
// the Authorization header.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

// WithClerkSession is middleware that validates Clerk session tokens
// and adds the session claims and resolved user to the request context.
func WithClerkSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !clerkInitialized {
			next.ServeHTTP(w, r)
			return
		}

		token := SessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := jwt.Verify(r.Context(), &jwt.VerifyParams{
			Token: token,
			CustomClaimsConstructor: func(context.Context) any {
				return &sessionClaims{}
			},
		})
		if err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("Invalid Clerk session token")
			next.ServeHTTP(w, r)
			return
		}

		ctx := clerk.ContextWithSessionClaims(r.Context(), claims)
		ctx = authz.ContextWithUser(ctx, userFromClaims(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromClaims(claims *clerk.SessionClaims) *authz.AuthUser {
	user := &authz.AuthUser{ID: claims.Subject}
	if custom, ok := claims.Custom.(*sessionClaims); ok && custom != nil {
		user.Email = strings.TrimSpace(custom.Email)
		user.IsStaff = strings.EqualFold(strings.TrimSpace(custom.Metadata.Role), staffRole)
	}
	return user
}

// RequireSession rejects requests without a signed-in user.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := authz.RequireUser(r.Context()); err != nil {
			log.Ctx(r.Context()).Debug().Str("path", r.URL.Path).Msg("Session required")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff rejects requests from users who are not platform staff.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.Ctx(r.Context())
		err := authz.RequireStaff(r.Context())
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Msg("Staff access denied: unauthenticated")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		case errors.Is(err, authz.ErrForbidden):
			logger.Warn().Str("user_id", authz.UserFromContext(r.Context()).ID).Msg("Staff access denied: forbidden")
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			logger.Error().Err(err).Msg("Staff access denied: error")
			http.Error(w, "Failed to authorize request", http.StatusInternalServerError)
		}
	})
}
