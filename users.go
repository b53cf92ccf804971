package authcore

import (
	"context"
	"errors"
)

// UserManager is thin CRUD over user rows plus the composite sign-up entry
// point. Absent rows come back as (nil, nil).
type UserManager struct {
	adapter StorageAdapter
}

func NewUserManager(adapter StorageAdapter) *UserManager {
	return &UserManager{adapter: adapter}
}

func (m *UserManager) Get(ctx context.Context, id int64) (*User, error) {
	user, err := m.adapter.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// Create inserts a user row. profile may be nil for an empty (anonymous)
// user.
func (m *UserManager) Create(ctx context.Context, profile *UserProfile) (*User, error) {
	return m.adapter.CreateUser(ctx, profile)
}

func (m *UserManager) Update(ctx context.Context, id int64, update UserProfile) (*User, error) {
	user, err := m.adapter.UpdateUser(ctx, id, update)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// CreateWithEverything creates user, key and session in one storage
// transaction. A failure at any step leaves no orphan rows behind.
func (m *UserManager) CreateWithEverything(ctx context.Context, key KeySpec, session SessionBody, profile *UserProfile) (*Everything, error) {
	return m.adapter.CreateUserWithEverything(ctx, key, session, profile)
}
