package authcore

import (
	"context"
	"log/slog"
)

// PasswordProvider implements email/password sign-up and sign-in, password
// reset and password change. Credential failures return (nil, nil): wrong
// password and unknown email are indistinguishable to the caller so the
// outcome never reveals whether an account exists.
type PasswordProvider struct {
	users            *UserManager
	keys             *KeyManager
	sessions         *SessionManager
	hasher           *PasswordHasher
	resetTokenLength int
}

func NewPasswordProvider(users *UserManager, keys *KeyManager, sessions *SessionManager, hasher *PasswordHasher, resetTokenLength int) *PasswordProvider {
	return &PasswordProvider{
		users:            users,
		keys:             keys,
		sessions:         sessions,
		hasher:           hasher,
		resetTokenLength: resetTokenLength,
	}
}

// SignUp creates {user(email), email key, session} atomically.
func (p *PasswordProvider) SignUp(ctx context.Context, email, password string) (*Everything, error) {
	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	body, err := p.sessions.CreateBody(0, 0)
	if err != nil {
		return nil, err
	}
	return p.users.CreateWithEverything(ctx,
		EmailKey{Email: email, PasswordHash: hash},
		body,
		&UserProfile{Email: &email})
}

// SignIn verifies the password against the email key and issues a fresh
// session. If the user's email field was never set (an account created
// anonymously and upgraded later), it is backfilled here.
func (p *PasswordProvider) SignIn(ctx context.Context, email, password string) (*Everything, error) {
	key, err := p.keys.FindByIdentification(ctx, KeyKindEmail, email)
	if err != nil {
		return nil, err
	}
	if key == nil || key.Secret == nil {
		return nil, nil
	}
	if !p.hasher.Verify(password, *key.Secret) {
		return nil, nil
	}

	user, err := p.users.Get(ctx, key.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	session, err := p.sessions.Create(ctx, key.UserID, key.ID)
	if err != nil {
		return nil, err
	}

	if user.Email == nil {
		updated, err := p.users.Update(ctx, user.ID, UserProfile{Email: &email})
		if err != nil {
			slog.Warn("backfilling user email failed", "user_id", user.ID, "error", err)
		} else if updated != nil {
			user = updated
		}
	}
	return &Everything{User: user, Key: key, Session: session}, nil
}

// Attach adds a password credential to an existing user, e.g. upgrading an
// anonymous account.
func (p *PasswordProvider) Attach(ctx context.Context, userID int64, email, password string) (*Key, error) {
	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return p.keys.Create(ctx, userID, EmailKey{Email: email, PasswordHash: hash})
}

// GetUserByEmail resolves an email address to its user, or nil.
func (p *PasswordProvider) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	key, err := p.keys.FindByIdentification(ctx, KeyKindEmail, email)
	if err != nil || key == nil {
		return nil, err
	}
	return p.users.Get(ctx, key.UserID)
}

// IsEmailTaken reports whether an email key already exists.
func (p *PasswordProvider) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	key, err := p.keys.FindByIdentification(ctx, KeyKindEmail, email)
	if err != nil {
		return false, err
	}
	return key != nil, nil
}

// CreatePasswordResetToken issues a single-use reset key for the account
// behind email. The random token value is the reset secret. Returns
// (nil, nil) for an unknown email so callers can report uniform success.
func (p *PasswordProvider) CreatePasswordResetToken(ctx context.Context, email string) (*Key, error) {
	key, err := p.keys.FindByIdentification(ctx, KeyKindEmail, email)
	if err != nil || key == nil {
		return nil, err
	}
	token, err := RandomHex(p.resetTokenLength)
	if err != nil {
		return nil, err
	}
	return p.keys.Create(ctx, key.UserID, ResetTokenKey{Token: token})
}

// ValidatePasswordResetToken consumes a reset token: it overwrites the email
// key's secret with the new password's hash, deletes the token key, deletes
// every existing session for that user and issues one fresh session.
func (p *PasswordProvider) ValidatePasswordResetToken(ctx context.Context, token, newPassword string) (*Session, error) {
	resetKey, err := p.keys.FindByIdentification(ctx, KeyKindResetPasswordToken, token)
	if err != nil || resetKey == nil {
		return nil, err
	}
	emailKey, err := p.keys.FindByUserID(ctx, KeyKindEmail, resetKey.UserID)
	if err != nil || emailKey == nil {
		return nil, err
	}
	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if _, err := p.keys.Update(ctx, emailKey.ID, KeyUpdate{Secret: &hash}); err != nil {
		return nil, err
	}
	if err := p.keys.Delete(ctx, resetKey.ID); err != nil {
		return nil, err
	}
	// The reset may have been prompted by a compromised account, so every
	// existing session is invalidated.
	if err := p.sessions.DeleteAll(ctx, resetKey.UserID); err != nil {
		return nil, err
	}
	return p.sessions.Create(ctx, emailKey.UserID, emailKey.ID)
}

// ChangePassword verifies the old password, then applies the same
// overwrite / invalidate-all / issue-fresh-session sequence as a reset.
func (p *PasswordProvider) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) (*Session, error) {
	key, err := p.keys.FindByUserID(ctx, KeyKindEmail, userID)
	if err != nil {
		return nil, err
	}
	if key == nil || key.Secret == nil {
		return nil, nil
	}
	if !p.hasher.Verify(oldPassword, *key.Secret) {
		return nil, nil
	}
	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	if _, err := p.keys.Update(ctx, key.ID, KeyUpdate{Secret: &hash}); err != nil {
		return nil, err
	}
	if err := p.sessions.DeleteAll(ctx, userID); err != nil {
		return nil, err
	}
	return p.sessions.Create(ctx, userID, key.ID)
}
