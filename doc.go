// Package authcore provides cookie-session authentication with linkable
// identities for Go applications.
//
// A single User can sign in through several credentials at once: an
// email/password pair, a Google or Facebook account, or a throwaway
// anonymous id. Each credential is a Key row with a unique
// (kind, identification) pair, so the same person keeps one account no
// matter how they arrive.
//
// # Architecture
//
// User: the identity anchor. Profile fields are nullable and get backfilled
// as credentials with richer profiles are linked.
//
// Key: a credential or linked external identity. An email key carries the
// password hash as its secret; OAuth keys carry the vendor's subject id;
// anonymous keys carry a random id. Keys are constructed through the sealed
// KeySpec union so kind and payload cannot disagree.
//
// Session: a server-side row addressed by the composite "{id}:{token}"
// cookie value. The id keeps lookups on an index; the token is the bearer
// secret, compared in constant time. Sessions validated near expiry are
// silently renewed.
//
// # Basic Usage
//
//	cfg, err := authcore.ConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := authgorm.Open(cfg.DatabaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	auth := authcore.New(cfg, store)
//	auth.AddOAuthProvider(oauth2.NewGoogle(auth.Users, auth.Keys, auth.Sessions,
//	    cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BaseURL+"/auth/google/callback"))
//
//	http.Handle("/auth/", http.StripPrefix("/auth", auth.Handler()))
//
// Protect application routes with the middleware:
//
//	http.Handle("/app/", auth.EnsureUser(appHandler))
//
// # Storage
//
// The stores/gorm package implements StorageAdapter on postgres. The
// stores/memory package implements it in memory for tests. Any other
// backend can be used by implementing the StorageAdapter interface.
//
// # Security
//
// Passwords are hashed with bcrypt over password+pepper. Session tokens,
// OAuth anti-CSRF state and password reset tokens are crypto/rand hex
// strings. Reset tokens are single use, and a password change or reset
// invalidates every existing session for the account. Credential failures
// never reveal whether an account exists.
package authcore
