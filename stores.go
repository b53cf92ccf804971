package authcore

import "context"

// StorageAdapter is the narrow persistence interface the managers are built
// on. Absent rows surface as ErrNotFound, never as a nil-and-nil pair, so
// storage failures stay distinguishable from "no such row".
//
// CreateUserWithEverything is the one multi-row operation and must run in a
// single transaction: user, then key referencing the user, then session
// referencing both, or nothing at all.
type StorageAdapter interface {
	// Users
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, profile *UserProfile) (*User, error)
	UpdateUser(ctx context.Context, id int64, update UserProfile) (*User, error)
	CreateUserWithEverything(ctx context.Context, key KeySpec, session SessionBody, profile *UserProfile) (*Everything, error)

	// Keys
	GetKey(ctx context.Context, id int64) (*Key, error)
	GetAllKeys(ctx context.Context, userID int64) ([]*Key, error)
	CreateKey(ctx context.Context, userID int64, spec KeySpec) (*Key, error)
	UpdateKey(ctx context.Context, id int64, update KeyUpdate) (*Key, error)
	DeleteKey(ctx context.Context, id int64) error
	FindKeyByIdentification(ctx context.Context, kind KeyKind, identification string) (*Key, error)
	FindKeyByUserID(ctx context.Context, kind KeyKind, userID int64) (*Key, error)

	// Sessions
	GetSession(ctx context.Context, id int64) (*Session, error)
	GetAllSessions(ctx context.Context, userID int64) ([]*Session, error)
	CreateSession(ctx context.Context, session SessionBody) (*Session, error)
	UpdateSession(ctx context.Context, id int64, update SessionUpdate) (*Session, error)
	DeleteSession(ctx context.Context, id int64) error
	DeleteSessionByIDToken(ctx context.Context, id int64, token string) error
	DeleteAllSessions(ctx context.Context, userID int64) error
	DeleteExpiredSessions(ctx context.Context) error
}
