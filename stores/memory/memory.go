// Package memory provides a mutex-guarded in-memory StorageAdapter used by
// tests and local development. Rows live in maps keyed by id; ids are handed
// out sequentially like a relational sequence would.
package memory

import (
	"context"
	"sync"
	"time"

	ac "github.com/planfair/authcore"
)

// Store implements authcore.StorageAdapter in memory.
type Store struct {
	mu sync.Mutex

	users    map[int64]*ac.User
	keys     map[int64]*ac.Key
	sessions map[int64]*ac.Session

	nextUserID    int64
	nextKeyID     int64
	nextSessionID int64

	// FailSessionCreate forces the next session insert to fail with the
	// given error. Lets tests exercise composite-create rollback.
	FailSessionCreate error
}

var _ ac.StorageAdapter = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[int64]*ac.User),
		keys:     make(map[int64]*ac.Key),
		sessions: make(map[int64]*ac.Session),
	}
}

// =============================================================================
// Users
// =============================================================================

func (s *Store) GetUser(_ context.Context, id int64) (*ac.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ac.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *Store) CreateUser(_ context.Context, profile *ac.UserProfile) (*ac.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.createUserLocked(profile)), nil
}

func (s *Store) UpdateUser(_ context.Context, id int64, update ac.UserProfile) (*ac.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ac.ErrNotFound
	}
	if update.Email != nil {
		user.Email = update.Email
	}
	if update.FirstName != nil {
		user.FirstName = update.FirstName
	}
	if update.LastName != nil {
		user.LastName = update.LastName
	}
	if update.PhotoURL != nil {
		user.PhotoURL = update.PhotoURL
	}
	user.UpdatedAt = time.Now()
	return copyUser(user), nil
}

func (s *Store) CreateUserWithEverything(_ context.Context, key ac.KeySpec, session ac.SessionBody, profile *ac.UserProfile) (*ac.Everything, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.createUserLocked(profile)
	created := s.createKeyLocked(user.ID, key)
	sess, err := s.createSessionLocked(ac.SessionBody{
		Token:     session.Token,
		UserID:    user.ID,
		KeyID:     created.ID,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		// roll back the two inserts so no orphan rows survive
		delete(s.users, user.ID)
		delete(s.keys, created.ID)
		return nil, err
	}
	return &ac.Everything{
		User:    copyUser(user),
		Key:     copyKey(created),
		Session: copySession(sess),
	}, nil
}

// =============================================================================
// Keys
// =============================================================================

func (s *Store) GetKey(_ context.Context, id int64) (*ac.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, ac.ErrNotFound
	}
	return copyKey(key), nil
}

func (s *Store) GetAllKeys(_ context.Context, userID int64) ([]*ac.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ac.Key
	for _, key := range s.keys {
		if key.UserID == userID {
			out = append(out, copyKey(key))
		}
	}
	return out, nil
}

func (s *Store) CreateKey(_ context.Context, userID int64, spec ac.KeySpec) (*ac.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyKey(s.createKeyLocked(userID, spec)), nil
}

func (s *Store) UpdateKey(_ context.Context, id int64, update ac.KeyUpdate) (*ac.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, ac.ErrNotFound
	}
	if update.Identification != nil {
		key.Identification = *update.Identification
	}
	if update.Secret != nil {
		key.Secret = update.Secret
	}
	key.UpdatedAt = time.Now()
	return copyKey(key), nil
}

func (s *Store) DeleteKey(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
	return nil
}

func (s *Store) FindKeyByIdentification(_ context.Context, kind ac.KeyKind, identification string) (*ac.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.keys {
		if key.Kind == kind && key.Identification == identification {
			return copyKey(key), nil
		}
	}
	return nil, ac.ErrNotFound
}

func (s *Store) FindKeyByUserID(_ context.Context, kind ac.KeyKind, userID int64) (*ac.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.keys {
		if key.Kind == kind && key.UserID == userID {
			return copyKey(key), nil
		}
	}
	return nil, ac.ErrNotFound
}

// =============================================================================
// Sessions
// =============================================================================

func (s *Store) GetSession(_ context.Context, id int64) (*ac.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ac.ErrNotFound
	}
	return copySession(sess), nil
}

func (s *Store) GetAllSessions(_ context.Context, userID int64) ([]*ac.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ac.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, copySession(sess))
		}
	}
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, session ac.SessionBody) (*ac.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.createSessionLocked(session)
	if err != nil {
		return nil, err
	}
	return copySession(sess), nil
}

func (s *Store) UpdateSession(_ context.Context, id int64, update ac.SessionUpdate) (*ac.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ac.ErrNotFound
	}
	if update.ExpiresAt != nil {
		t := *update.ExpiresAt
		sess.ExpiresAt = &t
	}
	sess.UpdatedAt = time.Now()
	return copySession(sess), nil
}

func (s *Store) DeleteSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteSessionByIDToken(_ context.Context, id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok && sess.Token == token {
		delete(s.sessions, id)
	}
	return nil
}

func (s *Store) DeleteAllSessions(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, sess := range s.sessions {
		if sess.ExpiresAt != nil && sess.ExpiresAt.Before(now) {
			delete(s.sessions, id)
		}
	}
	return nil
}

// =============================================================================
// internals
// =============================================================================

func (s *Store) createUserLocked(profile *ac.UserProfile) *ac.User {
	s.nextUserID++
	now := time.Now()
	user := &ac.User{ID: s.nextUserID, CreatedAt: now, UpdatedAt: now}
	if profile != nil {
		user.Email = profile.Email
		user.FirstName = profile.FirstName
		user.LastName = profile.LastName
		user.PhotoURL = profile.PhotoURL
	}
	s.users[user.ID] = user
	return user
}

func (s *Store) createKeyLocked(userID int64, spec ac.KeySpec) *ac.Key {
	s.nextKeyID++
	now := time.Now()
	key := &ac.Key{
		ID:             s.nextKeyID,
		UserID:         userID,
		Kind:           spec.Kind(),
		Identification: spec.Identification(),
		Secret:         spec.Secret(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.keys[key.ID] = key
	return key
}

func (s *Store) createSessionLocked(session ac.SessionBody) (*ac.Session, error) {
	if err := s.FailSessionCreate; err != nil {
		s.FailSessionCreate = nil
		return nil, err
	}
	s.nextSessionID++
	now := time.Now()
	sess := &ac.Session{
		ID:        s.nextSessionID,
		Token:     session.Token,
		UserID:    session.UserID,
		KeyID:     session.KeyID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func copyUser(u *ac.User) *ac.User {
	out := *u
	return &out
}

func copyKey(k *ac.Key) *ac.Key {
	out := *k
	return &out
}

func copySession(s *ac.Session) *ac.Session {
	out := *s
	return &out
}
