package authcore

import (
	"context"
	"strconv"

	"github.com/planfair/authcore/cache"
)

// OAuthProvider is the flow surface an OAuth2 vendor integration exposes to
// the HTTP boundary. Implemented by the oauth2 subpackage.
type OAuthProvider interface {
	Name() string
	StateCookieName() string
	RedirectURL() (url, state string, err error)
	Validate(ctx context.Context, code, state, storedState string) (*Everything, error)
}

// Auth bundles the managers, the providers and the lookup caches into one
// value an application wires once. Build it with New, register OAuth
// providers with AddOAuthProvider, then mount Handler() under /auth.
type Auth struct {
	Config Config

	Users    *UserManager
	Keys     *KeyManager
	Sessions *SessionManager

	Password  *PasswordProvider
	Anonymous *AnonymousProvider

	// Emails delivers password reset mail. Defaults to ConsoleEmailSender.
	Emails SendEmail

	sessionCache *cache.Cache[*Session]
	userCache    *cache.Cache[*User]
	oauth        map[string]OAuthProvider
	limiter      *RateLimiter
}

func New(cfg Config, adapter StorageAdapter) *Auth {
	users := NewUserManager(adapter)
	keys := NewKeyManager(adapter)
	sessions := NewSessionManager(adapter, cfg.SessionTokenLength, cfg.SessionDuration)
	hasher := NewPasswordHasher(cfg.PasswordPepper, cfg.BcryptCost)

	return &Auth{
		Config:       cfg,
		Users:        users,
		Keys:         keys,
		Sessions:     sessions,
		Password:     NewPasswordProvider(users, keys, sessions, hasher, cfg.ResetTokenLength),
		Anonymous:    NewAnonymousProvider(users, sessions),
		Emails:       &ConsoleEmailSender{},
		sessionCache: cache.New[*Session](cfg.CacheCapacity),
		userCache:    cache.New[*User](cfg.CacheCapacity),
		oauth:        map[string]OAuthProvider{},
		limiter:      NewRateLimiter(perMinute(cfg.RateLimitPerMinute), cfg.RateLimitBurst),
	}
}

// AddOAuthProvider registers a vendor under its Name().
func (a *Auth) AddOAuthProvider(p OAuthProvider) *Auth {
	a.oauth[p.Name()] = p
	return a
}

// OAuthProvider returns the registered vendor with the given name, or nil.
func (a *Auth) OAuthProvider(name string) OAuthProvider {
	return a.oauth[name]
}

// ValidateSession resolves a composite session token via the short-lived
// cache. The cache is a read-through memo over SessionManager.Validate, so a
// burst of requests carrying the same cookie hits storage once per TTL.
// Nothing is cached for invalid tokens.
func (a *Auth) ValidateSession(ctx context.Context, idToken string) (*Session, error) {
	session, err := a.sessionCache.Wrap("session:"+idToken, func() (*Session, error) {
		return a.Sessions.Validate(ctx, idToken)
	}, a.Config.CacheTTL)
	if err != nil || session == nil {
		return nil, err
	}
	return session, nil
}

// UserBySession resolves the user behind a validated session, memoized the
// same way as ValidateSession.
func (a *Auth) UserBySession(ctx context.Context, session *Session) (*User, error) {
	return a.userCache.Wrap(userCacheKey(session.UserID), func() (*User, error) {
		return a.Users.Get(ctx, session.UserID)
	}, a.Config.CacheTTL)
}

// InvalidateUser drops a user from the lookup cache, e.g. after a profile
// update, so the next request re-reads storage.
func (a *Auth) InvalidateUser(userID int64) {
	a.userCache.Delete(userCacheKey(userID))
}

// InvalidateSession drops a composite token from the lookup cache, e.g.
// after sign-out.
func (a *Auth) InvalidateSession(idToken string) {
	a.sessionCache.Delete("session:" + idToken)
}

func userCacheKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
