package authcore

import (
	"net/http"
	"strconv"
	"time"
)

// Cookie names the HTTP boundary sets. The session cookie carries the
// composite "{id}:{token}" and is the only secret; user_id is a readable
// convenience for frontends and grants nothing by itself.
const (
	SessionCookieName = "auth_session"
	UserIDCookieName  = "user_id"
)

const stateCookieMaxAge = int(time.Hour / time.Second)

// fallback when a session row has no expiry
const sessionCookieFallbackMaxAge = int(365 * 24 * time.Hour / time.Second)

// setSessionCookies installs the session and user_id cookies for a freshly
// issued session. Cookie lifetime tracks the session row's expiry.
func (a *Auth) setSessionCookies(w http.ResponseWriter, session *Session) {
	maxAge := sessionCookieFallbackMaxAge
	if session.ExpiresAt != nil {
		if remaining := int(time.Until(*session.ExpiresAt) / time.Second); remaining > 0 {
			maxAge = remaining
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    a.Sessions.IDTokenForCookie(session),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !a.Config.Dev,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     UserIDCookieName,
		Value:    strconv.FormatInt(session.UserID, 10),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   !a.Config.Dev,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies expires both auth cookies.
func (a *Auth) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{SessionCookieName, UserIDCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: name == SessionCookieName,
			Secure:   !a.Config.Dev,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// setStateCookie stashes the OAuth anti-CSRF state for one provider. Short
// lived: it only needs to survive the round trip to the vendor.
func (a *Auth) setStateCookie(w http.ResponseWriter, provider OAuthProvider, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     provider.StateCookieName(),
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   !a.Config.Dev,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Auth) clearStateCookie(w http.ResponseWriter, provider OAuthProvider) {
	http.SetCookie(w, &http.Cookie{
		Name:     provider.StateCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   !a.Config.Dev,
		SameSite: http.SameSiteLaxMode,
	})
}
