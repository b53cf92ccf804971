package authcore

import "time"

// User is the identity anchor. Profile fields are nullable: anonymous users
// start with none of them set and providers backfill them later.
type User struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     *string   `json:"email"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	PhotoURL  *string   `json:"photo_url"`
}

// UserProfile is a partial user payload: nil fields are left untouched on
// update and unset on create.
type UserProfile struct {
	Email     *string
	FirstName *string
	LastName  *string
	PhotoURL  *string
}

// IsEmpty reports whether no field of the patch is set.
func (p UserProfile) IsEmpty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.PhotoURL == nil
}

// KeyKind discriminates how a Key's identification and secret are interpreted.
type KeyKind int

const (
	KeyKindEmail KeyKind = iota
	KeyKindResetPasswordToken
	KeyKindGoogle
	KeyKindFacebook
	KeyKindAnon
)

func (k KeyKind) String() string {
	switch k {
	case KeyKindEmail:
		return "email"
	case KeyKindResetPasswordToken:
		return "reset_password_token"
	case KeyKindGoogle:
		return "google"
	case KeyKindFacebook:
		return "facebook"
	case KeyKindAnon:
		return "anon"
	}
	return "unknown"
}

// Key is a stored credential or linked external identity, one row per
// (kind, identification) pair. A user may hold one key per linked provider.
type Key struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Kind           KeyKind   `json:"kind"`
	Identification string    `json:"identification"`
	Secret         *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// KeySpec describes a key to be created. It is a closed union: each variant
// carries only the fields its kind actually interprets, so providers cannot
// construct a key whose secret and kind disagree.
type KeySpec interface {
	Kind() KeyKind
	Identification() string
	Secret() *string
}

// EmailKey is a password credential: the identification is the email address
// and the secret is the password hash.
type EmailKey struct {
	Email        string
	PasswordHash string
}

func (k EmailKey) Kind() KeyKind          { return KeyKindEmail }
func (k EmailKey) Identification() string { return k.Email }
func (k EmailKey) Secret() *string        { h := k.PasswordHash; return &h }

// ResetTokenKey is a single-use password-reset token. The random token value
// is the identification; there is no secret.
type ResetTokenKey struct {
	Token string
}

func (k ResetTokenKey) Kind() KeyKind          { return KeyKindResetPasswordToken }
func (k ResetTokenKey) Identification() string { return k.Token }
func (k ResetTokenKey) Secret() *string        { return nil }

// GoogleKey links a Google account by its OAuth subject id.
type GoogleKey struct {
	Subject string
}

func (k GoogleKey) Kind() KeyKind          { return KeyKindGoogle }
func (k GoogleKey) Identification() string { return k.Subject }
func (k GoogleKey) Secret() *string        { return nil }

// FacebookKey links a Facebook account by its app-scoped user id.
type FacebookKey struct {
	Subject string
}

func (k FacebookKey) Kind() KeyKind          { return KeyKindFacebook }
func (k FacebookKey) Identification() string { return k.Subject }
func (k FacebookKey) Secret() *string        { return nil }

// AnonKey identifies an anonymous user by a fresh random id.
type AnonKey struct {
	ID string
}

func (k AnonKey) Kind() KeyKind          { return KeyKindAnon }
func (k AnonKey) Identification() string { return k.ID }
func (k AnonKey) Secret() *string        { return nil }

// KeyUpdate is a partial key patch; nil fields are left untouched.
type KeyUpdate struct {
	Identification *string
	Secret         *string
}

// Session is a server-side session row. The client only ever sees the
// composite "{id}:{token}" form: the numeric id keeps lookups on an index
// while the random token stays the actual bearer secret.
type Session struct {
	ID        int64      `json:"id"`
	Token     string     `json:"-"`
	UserID    int64      `json:"user_id"`
	KeyID     int64      `json:"key_id"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SessionBody is an unpersisted session: what SessionManager.CreateBody
// builds and the composite-create transaction persists.
type SessionBody struct {
	Token     string
	UserID    int64
	KeyID     int64
	ExpiresAt *time.Time
}

// SessionUpdate is a partial session patch; nil fields are left untouched.
type SessionUpdate struct {
	ExpiresAt *time.Time
}

// Everything bundles the three rows the atomic sign-up create returns.
type Everything struct {
	User    *User    `json:"user"`
	Key     *Key     `json:"key"`
	Session *Session `json:"session"`
}
