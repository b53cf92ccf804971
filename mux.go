package authcore

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// Handler returns the auth HTTP boundary, intended to be mounted under a
// prefix:
//
//	http.Handle("/auth/", http.StripPrefix("/auth", auth.Handler()))
//
// Every route runs behind ExtractUser so handlers can see the current
// session and user.
func (a *Auth) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(a.ExtractUser)

	r.HandleFunc("/users", a.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/users/anon", a.handleAnonSignUp).Methods(http.MethodPost)
	r.HandleFunc("/sign-in", a.handleSignIn).Methods(http.MethodPost)
	r.HandleFunc("/sign-out", a.handleSignOut).Methods(http.MethodPost)
	r.HandleFunc("/me", a.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/password-reset-request", a.handlePasswordResetRequest).Methods(http.MethodPost)
	r.HandleFunc("/password-reset", a.handlePasswordReset).Methods(http.MethodPost)
	r.HandleFunc("/password-change", a.handlePasswordChange).Methods(http.MethodPost)
	r.HandleFunc("/{provider}", a.handleOAuthRedirect).Methods(http.MethodGet)
	r.HandleFunc("/{provider}/callback", a.handleOAuthCallback).Methods(http.MethodGet)

	return r
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignUp creates an email/password account. When the request already
// carries a signed-in user without a password credential (an anonymous
// account being upgraded), the email key is attached to that user instead of
// creating a fresh one, so the user keeps their id and data.
func (a *Auth) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		a.errorResponse(w, "invalid_request", "Email and password are required", http.StatusBadRequest)
		return
	}
	req.Email = normalizeEmail(req.Email)

	if !a.limiter.Allow(clientIP(r) + ":" + req.Email) {
		a.errorResponse(w, "rate_limit_exceeded", "Too many attempts", http.StatusTooManyRequests)
		return
	}

	taken, err := a.Password.IsEmailTaken(r.Context(), req.Email)
	if err != nil {
		a.serverError(w, "email lookup failed", err)
		return
	}
	if taken {
		a.errorResponse(w, "email_taken", "Email is already registered", http.StatusConflict)
		return
	}

	if current := UserFromContext(r.Context()); current != nil {
		existing, err := a.Keys.FindByUserID(r.Context(), KeyKindEmail, current.ID)
		if err != nil {
			a.serverError(w, "key lookup failed", err)
			return
		}
		if existing == nil {
			a.attachPassword(w, r, current, req.Email, req.Password)
			return
		}
	}

	everything, err := a.Password.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		a.serverError(w, "sign up failed", err)
		return
	}
	a.signedIn(w, everything.Session, everything.User, http.StatusCreated)
}

// attachPassword upgrades the current (anonymous) user with an email key and
// backfills their email field.
func (a *Auth) attachPassword(w http.ResponseWriter, r *http.Request, user *User, email, password string) {
	if _, err := a.Password.Attach(r.Context(), user.ID, email, password); err != nil {
		a.serverError(w, "attaching credential failed", err)
		return
	}
	if user.Email == nil {
		updated, err := a.Users.Update(r.Context(), user.ID, UserProfile{Email: &email})
		if err != nil {
			a.serverError(w, "backfilling email failed", err)
			return
		}
		if updated != nil {
			user = updated
		}
		a.InvalidateUser(user.ID)
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *Auth) handleAnonSignUp(w http.ResponseWriter, r *http.Request) {
	if !a.limiter.Allow(clientIP(r) + ":anon") {
		a.errorResponse(w, "rate_limit_exceeded", "Too many attempts", http.StatusTooManyRequests)
		return
	}
	everything, err := a.Anonymous.SignUp(r.Context())
	if err != nil {
		a.serverError(w, "anonymous sign up failed", err)
		return
	}
	a.signedIn(w, everything.Session, everything.User, http.StatusCreated)
}

func (a *Auth) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		a.errorResponse(w, "invalid_request", "Email and password are required", http.StatusBadRequest)
		return
	}
	req.Email = normalizeEmail(req.Email)

	if !a.limiter.Allow(clientIP(r) + ":" + req.Email) {
		a.errorResponse(w, "rate_limit_exceeded", "Too many attempts", http.StatusTooManyRequests)
		return
	}

	everything, err := a.Password.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		a.serverError(w, "sign in failed", err)
		return
	}
	if everything == nil {
		// unknown email and wrong password share one answer
		a.errorResponse(w, "invalid_credentials", "Invalid email or password", http.StatusUnauthorized)
		return
	}
	a.signedIn(w, everything.Session, everything.User, http.StatusOK)
}

func (a *Auth) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := a.Sessions.Delete(r.Context(), cookie.Value); err != nil {
			slog.Warn("deleting session failed", "error", err)
		}
		a.InvalidateSession(cookie.Value)
	}
	a.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *Auth) handleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		a.errorResponse(w, "unauthorized", "Authentication required", http.StatusUnauthorized)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handlePasswordResetRequest always answers 202: whether the email exists is
// never revealed. When it does exist a reset link is mailed out.
func (a *Auth) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		a.errorResponse(w, "invalid_request", "Email is required", http.StatusBadRequest)
		return
	}
	req.Email = normalizeEmail(req.Email)

	if !a.limiter.Allow(clientIP(r) + ":" + req.Email) {
		a.errorResponse(w, "rate_limit_exceeded", "Too many attempts", http.StatusTooManyRequests)
		return
	}

	resetKey, err := a.Password.CreatePasswordResetToken(r.Context(), req.Email)
	if err != nil {
		a.serverError(w, "creating reset token failed", err)
		return
	}
	if resetKey != nil {
		link := a.Config.BaseURL + "/password-reset?token=" + resetKey.Identification
		if err := a.Emails.SendPasswordResetEmail(req.Email, link); err != nil {
			slog.Error("sending reset email failed", "error", err)
		}
	}
	a.writeJSON(w, http.StatusAccepted, map[string]any{"message": "If the address exists, a reset link has been sent"})
}

func (a *Auth) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Password == "" {
		a.errorResponse(w, "invalid_request", "Token and new password are required", http.StatusBadRequest)
		return
	}

	session, err := a.Password.ValidatePasswordResetToken(r.Context(), req.Token, req.Password)
	if err != nil {
		a.serverError(w, "password reset failed", err)
		return
	}
	if session == nil {
		a.errorResponse(w, "invalid_token", "Reset token is invalid or already used", http.StatusUnauthorized)
		return
	}
	a.afterSessionSweep(session.UserID)
	a.setSessionCookies(w, session)
	a.writeJSON(w, http.StatusOK, map[string]any{"message": "Password updated"})
}

func (a *Auth) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		a.errorResponse(w, "unauthorized", "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		a.errorResponse(w, "invalid_request", "Old and new passwords are required", http.StatusBadRequest)
		return
	}

	if !a.limiter.Allow(clientIP(r) + ":change") {
		a.errorResponse(w, "rate_limit_exceeded", "Too many attempts", http.StatusTooManyRequests)
		return
	}

	session, err := a.Password.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword)
	if err != nil {
		a.serverError(w, "password change failed", err)
		return
	}
	if session == nil {
		a.errorResponse(w, "invalid_credentials", "Current password is incorrect", http.StatusUnauthorized)
		return
	}
	a.afterSessionSweep(user.ID)
	a.setSessionCookies(w, session)
	a.writeJSON(w, http.StatusOK, map[string]any{"message": "Password changed"})
}

func (a *Auth) handleOAuthRedirect(w http.ResponseWriter, r *http.Request) {
	provider := a.OAuthProvider(mux.Vars(r)["provider"])
	if provider == nil {
		a.errorResponse(w, "unknown_provider", "Unknown sign-in provider", http.StatusNotFound)
		return
	}
	url, state, err := provider.RedirectURL()
	if err != nil {
		a.serverError(w, "building redirect failed", err)
		return
	}
	a.setStateCookie(w, provider, state)
	http.Redirect(w, r, url, http.StatusFound)
}

func (a *Auth) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := a.OAuthProvider(mux.Vars(r)["provider"])
	if provider == nil {
		a.errorResponse(w, "unknown_provider", "Unknown sign-in provider", http.StatusNotFound)
		return
	}

	storedState := ""
	if cookie, err := r.Cookie(provider.StateCookieName()); err == nil {
		storedState = cookie.Value
	}
	a.clearStateCookie(w, provider)

	query := r.URL.Query()
	everything, err := provider.Validate(r.Context(), query.Get("code"), query.Get("state"), storedState)
	if err != nil {
		slog.Warn("oauth callback rejected", "provider", provider.Name(), "error", err)
		a.errorResponse(w, "oauth_failed", "Sign-in could not be completed", http.StatusUnauthorized)
		return
	}

	a.InvalidateUser(everything.User.ID)
	a.setSessionCookies(w, everything.Session)
	http.Redirect(w, r, "/", http.StatusFound)
}

// signedIn sets the session cookies and writes the user payload.
func (a *Auth) signedIn(w http.ResponseWriter, session *Session, user *User, status int) {
	a.setSessionCookies(w, session)
	a.writeJSON(w, status, map[string]any{"user": user})
}

// afterSessionSweep resets the session cache after a bulk invalidation so no
// deleted session keeps serving from memory for a TTL.
func (a *Auth) afterSessionSweep(userID int64) {
	a.sessionCache.Reset()
	a.InvalidateUser(userID)
}

func (a *Auth) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("writing response failed", "error", err)
	}
}

func (a *Auth) errorResponse(w http.ResponseWriter, code, description string, status int) {
	a.writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func (a *Auth) serverError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	a.errorResponse(w, "server_error", "Internal error", http.StatusInternalServerError)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
