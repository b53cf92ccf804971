package authcore

import "errors"

// Storage adapters return ErrNotFound for absent rows so callers can tell
// "no such row" apart from real storage failures. Managers translate it into
// a nil result: on the authentication path, not-found and bad-credential are
// deliberately indistinguishable to callers.
var ErrNotFound = errors.New("not found")

// OAuth protocol violations are hard failures, never downgraded to a nil
// result: a state mismatch or a missing code may indicate an attack.
var (
	ErrOAuthStateMismatch = errors.New("oauth state missing or mismatched")
	ErrOAuthMissingCode   = errors.New("oauth authorization code missing")
	ErrOAuthNoToken       = errors.New("oauth provider returned no access token")
	ErrOAuthNoSubject     = errors.New("oauth profile has no subject id")
)
