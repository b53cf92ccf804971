package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionManager owns the session lifecycle: creation, validation with
// silent rolling renewal, deletion and bulk invalidation. It holds no state
// beyond configuration; every row lives in the StorageAdapter.
type SessionManager struct {
	adapter     StorageAdapter
	tokenLength int
	duration    time.Duration
}

func NewSessionManager(adapter StorageAdapter, tokenLength int, duration time.Duration) *SessionManager {
	return &SessionManager{adapter: adapter, tokenLength: tokenLength, duration: duration}
}

// CreateBody builds an unpersisted session body with a fresh random token
// and a full expiry window. Pure construction, no storage.
func (m *SessionManager) CreateBody(userID, keyID int64) (SessionBody, error) {
	token, err := RandomHex(m.tokenLength)
	if err != nil {
		return SessionBody{}, err
	}
	expiresAt := time.Now().Add(m.duration)
	return SessionBody{
		Token:     token,
		UserID:    userID,
		KeyID:     keyID,
		ExpiresAt: &expiresAt,
	}, nil
}

// Create builds and persists a new session for (userID, keyID).
func (m *SessionManager) Create(ctx context.Context, userID, keyID int64) (*Session, error) {
	body, err := m.CreateBody(userID, keyID)
	if err != nil {
		return nil, err
	}
	return m.adapter.CreateSession(ctx, body)
}

// Validate resolves a composite "{id}:{token}" value to a live session.
// It returns (nil, nil) on any authentication failure: malformed input,
// unknown id, token mismatch or expiry are indistinguishable to the caller.
//
// A session validated within the final quarter of its configured duration is
// silently renewed: its expiry is pushed out to a fresh full window, so
// active users are never forced to re-login while each check extends the
// session by at most one duration.
func (m *SessionManager) Validate(ctx context.Context, idToken string) (*Session, error) {
	id, token, ok := m.ParseIDToken(idToken)
	if !ok {
		return nil, nil
	}
	session, err := m.adapter.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(session.Token), []byte(token)) != 1 {
		return nil, nil
	}
	now := time.Now()
	if session.ExpiresAt != nil && session.ExpiresAt.Before(now) {
		return nil, nil
	}
	if session.ExpiresAt != nil && session.ExpiresAt.Before(now.Add(m.duration/4)) {
		expiresAt := now.Add(m.duration)
		updated, err := m.adapter.UpdateSession(ctx, session.ID, SessionUpdate{ExpiresAt: &expiresAt})
		if err == nil && updated != nil {
			return updated, nil
		}
	}
	return session, nil
}

// Delete removes the session named by a composite token. Deletion matches on
// (id, token), not id alone, so a stale token cannot remove someone else's
// session. Returns false when the composite token is unparsable.
func (m *SessionManager) Delete(ctx context.Context, idToken string) (bool, error) {
	id, token, ok := m.ParseIDToken(idToken)
	if !ok {
		return false, nil
	}
	if err := m.adapter.DeleteSessionByIDToken(ctx, id, token); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteAll invalidates every session for a user. Invoked after password
// change or reset as blast-radius containment.
func (m *SessionManager) DeleteAll(ctx context.Context, userID int64) error {
	return m.adapter.DeleteAllSessions(ctx, userID)
}

// DeleteExpired sweeps expired rows. Intended for an external scheduler.
func (m *SessionManager) DeleteExpired(ctx context.Context) error {
	return m.adapter.DeleteExpiredSessions(ctx)
}

// Get returns the session with the given id, or nil when absent.
func (m *SessionManager) Get(ctx context.Context, id int64) (*Session, error) {
	session, err := m.adapter.GetSession(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return session, err
}

// GetAll returns every session belonging to userID.
func (m *SessionManager) GetAll(ctx context.Context, userID int64) ([]*Session, error) {
	return m.adapter.GetAllSessions(ctx, userID)
}

// Update applies a partial patch to the session with the given id.
func (m *SessionManager) Update(ctx context.Context, id int64, update SessionUpdate) (*Session, error) {
	session, err := m.adapter.UpdateSession(ctx, id, update)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return session, err
}

// IDTokenForCookie renders the composite client-visible form of a session.
func (m *SessionManager) IDTokenForCookie(session *Session) string {
	return fmt.Sprintf("%d:%s", session.ID, session.Token)
}

// ParseIDToken splits a composite "{id}:{token}" value. ok is false when
// either part is missing or the id is not a positive integer.
func (m *SessionManager) ParseIDToken(idToken string) (id int64, token string, ok bool) {
	idPart, token, found := strings.Cut(idToken, ":")
	if !found || idPart == "" || token == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, token, true
}
