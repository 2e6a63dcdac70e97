package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clerk/clerk-sdk-go/v2"

	"github.com/codr1/Pawfield/internal/api/authz"
)

func TestInitClerk(t *testing.T) {
	// Save and restore global state
	prevClerkInit := clerkInitialized
	t.Cleanup(func() {
		clerkInitialized = prevClerkInit
	})

	t.Run("empty secret key does not initialize", func(t *testing.T) {
		clerkInitialized = false
		InitClerk("")
		if clerkInitialized {
			t.Error("expected clerkInitialized to be false with empty key")
		}
	})

	t.Run("valid secret key initializes", func(t *testing.T) {
		clerkInitialized = false
		InitClerk("sk_test_xxx")
		if !clerkInitialized {
			t.Error("expected clerkInitialized to be true with valid key")
		}
	})
}

func TestSessionToken(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{"cookie", "cookie-token", "", "cookie-token"},
		{"bearer header", "", "Bearer header-token", "header-token"},
		{"bearer is case-insensitive", "", "bearer  spaced ", "spaced"},
		{"cookie wins", "cookie-token", "Bearer header-token", "cookie-token"},
		{"basic auth ignored", "", "Basic abc", ""},
		{"empty bearer", "", "Bearer ", ""},
		{"none", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := SessionToken(req); got != tt.want {
				t.Fatalf("SessionToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserFromClaims(t *testing.T) {
	custom := &sessionClaims{Email: " owner@test.com "}
	custom.Metadata.Role = "Admin"
	claims := &clerk.SessionClaims{Custom: custom}
	claims.Subject = "user_123"

	user := userFromClaims(claims)
	if user.ID != "user_123" || user.Email != "owner@test.com" || !user.IsStaff {
		t.Fatalf("unexpected user %+v", user)
	}

	plain := &clerk.SessionClaims{}
	plain.Subject = "user_456"
	if user := userFromClaims(plain); user.IsStaff || user.Email != "" {
		t.Fatalf("expected plain user, got %+v", user)
	}
}

func TestWithClerkSession_PassesThroughWhenNotInitialized(t *testing.T) {
	prevClerkInit := clerkInitialized
	t.Cleanup(func() {
		clerkInitialized = prevClerkInit
	})
	clerkInitialized = false

	var sawUser bool
	handler := WithClerkSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUser = authz.UserFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || sawUser {
		t.Fatalf("expected anonymous pass-through, got %d (user=%v)", rec.Code, sawUser)
	}
}

func TestRequireSession(t *testing.T) {
	handler := RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: "user_1"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequireStaff(t *testing.T) {
	handler := RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		user *authz.AuthUser
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &authz.AuthUser{ID: "user_1"}, http.StatusForbidden},
		{"staff", &authz.AuthUser{ID: "user_2", IsStaff: true}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", nil)
			if tt.user != nil {
				req = req.WithContext(authz.ContextWithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
