package authcore

import (
	"context"
	"errors"
)

// KeyManager is pass-through CRUD over credential keys. It validates nothing
// beyond what the StorageAdapter enforces; it exists so providers never talk
// to storage directly. Absent rows come back as (nil, nil).
type KeyManager struct {
	adapter StorageAdapter
}

func NewKeyManager(adapter StorageAdapter) *KeyManager {
	return &KeyManager{adapter: adapter}
}

func (m *KeyManager) Get(ctx context.Context, id int64) (*Key, error) {
	key, err := m.adapter.GetKey(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return key, err
}

func (m *KeyManager) GetAll(ctx context.Context, userID int64) ([]*Key, error) {
	return m.adapter.GetAllKeys(ctx, userID)
}

// FindByIdentification looks a key up by its unique (kind, identification)
// pair. This is the credential lookup path.
func (m *KeyManager) FindByIdentification(ctx context.Context, kind KeyKind, identification string) (*Key, error) {
	key, err := m.adapter.FindKeyByIdentification(ctx, kind, identification)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return key, err
}

// FindByUserID returns the user's key of the given kind, if any.
func (m *KeyManager) FindByUserID(ctx context.Context, kind KeyKind, userID int64) (*Key, error) {
	key, err := m.adapter.FindKeyByUserID(ctx, kind, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return key, err
}

func (m *KeyManager) Create(ctx context.Context, userID int64, spec KeySpec) (*Key, error) {
	return m.adapter.CreateKey(ctx, userID, spec)
}

func (m *KeyManager) Update(ctx context.Context, id int64, update KeyUpdate) (*Key, error) {
	key, err := m.adapter.UpdateKey(ctx, id, update)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return key, err
}

func (m *KeyManager) Delete(ctx context.Context, id int64) error {
	return m.adapter.DeleteKey(ctx, id)
}
