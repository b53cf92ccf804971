package gorm

import (
	"time"

	ac "github.com/planfair/authcore"
)

// UserModel is the GORM model for users.
type UserModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	Email     *string   `gorm:"size:255"`
	FirstName *string   `gorm:"size:255"`
	LastName  *string   `gorm:"size:255"`
	PhotoURL  *string   `gorm:"size:1024"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *ac.User {
	return &ac.User{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		PhotoURL:  m.PhotoURL,
	}
}

// KeyModel is the GORM model for credential keys. (kind, identification) is
// the unique credential lookup pair.
type KeyModel struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	UserID         int64      `gorm:"index"`
	Kind           ac.KeyKind `gorm:"uniqueIndex:idx_keys_kind_identification"`
	Identification string     `gorm:"size:320;uniqueIndex:idx_keys_kind_identification"`
	Secret         *string    `gorm:"size:255"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

func (KeyModel) TableName() string {
	return "keys"
}

func (m *KeyModel) ToKey() *ac.Key {
	return &ac.Key{
		ID:             m.ID,
		UserID:         m.UserID,
		Kind:           m.Kind,
		Identification: m.Identification,
		Secret:         m.Secret,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// SessionModel is the GORM model for sessions. Lookup is by numeric id; the
// token column is the secret compared after lookup.
type SessionModel struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	Token     string     `gorm:"size:128"`
	UserID    int64      `gorm:"index"`
	KeyID     int64      `gorm:"index"`
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToSession() *ac.Session {
	return &ac.Session{
		ID:        m.ID,
		Token:     m.Token,
		UserID:    m.UserID,
		KeyID:     m.KeyID,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func userModelFromProfile(profile *ac.UserProfile) *UserModel {
	model := &UserModel{}
	if profile != nil {
		model.Email = profile.Email
		model.FirstName = profile.FirstName
		model.LastName = profile.LastName
		model.PhotoURL = profile.PhotoURL
	}
	return model
}

func keyModelFromSpec(userID int64, spec ac.KeySpec) *KeyModel {
	return &KeyModel{
		UserID:         userID,
		Kind:           spec.Kind(),
		Identification: spec.Identification(),
		Secret:         spec.Secret(),
	}
}
