package authcore

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const (
	sessionContextKey contextKey = "auth_session"
	userContextKey    contextKey = "auth_user"
)

// SessionFromContext returns the validated session placed on the request by
// ExtractUser, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}

// UserFromContext returns the resolved user placed on the request by
// ExtractUser, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userContextKey).(*User)
	return u
}

// ExtractUser resolves the session cookie on every request and, when valid,
// puts the session and its user on the request context. Both lookups run
// through the short-lived cache so request bursts do not hammer storage.
//
// A request carrying an invalid or expired cookie gets its auth cookies
// cleared in the response but is not rejected; use EnsureUser for that.
func (a *Auth) ExtractUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := a.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			a.serverError(w, "session validation failed", err)
			return
		}
		if session == nil {
			a.clearSessionCookies(w)
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.UserBySession(r.Context(), session)
		if err != nil {
			slog.Error("user lookup failed", "user_id", session.UserID, "error", err)
			a.errorResponse(w, "server_error", "Internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			// session points at a deleted user; treat as signed out
			a.clearSessionCookies(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		ctx = context.WithValue(ctx, userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EnsureUser runs ExtractUser and rejects requests that end up without a
// signed-in user.
func (a *Auth) EnsureUser(next http.Handler) http.Handler {
	return a.ExtractUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			a.errorResponse(w, "unauthorized", "Authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
