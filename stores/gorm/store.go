package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	ac "github.com/planfair/authcore"
)

// Store implements authcore.StorageAdapter on a GORM database handle.
type Store struct {
	db *gorm.DB
}

var _ ac.StorageAdapter = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the users, keys and sessions tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&KeyModel{},
		&SessionModel{},
	)
}

// =============================================================================
// Users
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id int64) (*ac.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return model.ToUser(), nil
}

func (s *Store) CreateUser(ctx context.Context, profile *ac.UserProfile) (*ac.User, error) {
	model := userModelFromProfile(profile)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, update ac.UserProfile) (*ac.User, error) {
	patch := userPatch(update)
	if len(patch) > 0 {
		res := s.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Updates(patch)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ac.ErrNotFound
		}
	}
	return s.GetUser(ctx, id)
}

// CreateUserWithEverything creates user, key and session in one transaction;
// any failure rolls all three back.
func (s *Store) CreateUserWithEverything(ctx context.Context, key ac.KeySpec, session ac.SessionBody, profile *ac.UserProfile) (*ac.Everything, error) {
	var out *ac.Everything
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userModel := userModelFromProfile(profile)
		if err := tx.Create(userModel).Error; err != nil {
			return err
		}
		keyModel := keyModelFromSpec(userModel.ID, key)
		if err := tx.Create(keyModel).Error; err != nil {
			return err
		}
		sessionModel := &SessionModel{
			Token:     session.Token,
			UserID:    userModel.ID,
			KeyID:     keyModel.ID,
			ExpiresAt: session.ExpiresAt,
		}
		if err := tx.Create(sessionModel).Error; err != nil {
			return err
		}
		out = &ac.Everything{
			User:    userModel.ToUser(),
			Key:     keyModel.ToKey(),
			Session: sessionModel.ToSession(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// Keys
// =============================================================================

func (s *Store) GetKey(ctx context.Context, id int64) (*ac.Key, error) {
	var model KeyModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return model.ToKey(), nil
}

func (s *Store) GetAllKeys(ctx context.Context, userID int64) ([]*ac.Key, error) {
	var models []KeyModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, err
	}
	keys := make([]*ac.Key, len(models))
	for i := range models {
		keys[i] = models[i].ToKey()
	}
	return keys, nil
}

func (s *Store) CreateKey(ctx context.Context, userID int64, spec ac.KeySpec) (*ac.Key, error) {
	model := keyModelFromSpec(userID, spec)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToKey(), nil
}

func (s *Store) UpdateKey(ctx context.Context, id int64, update ac.KeyUpdate) (*ac.Key, error) {
	patch := map[string]any{}
	if update.Identification != nil {
		patch["identification"] = *update.Identification
	}
	if update.Secret != nil {
		patch["secret"] = *update.Secret
	}
	if len(patch) > 0 {
		res := s.db.WithContext(ctx).Model(&KeyModel{}).Where("id = ?", id).Updates(patch)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ac.ErrNotFound
		}
	}
	return s.GetKey(ctx, id)
}

func (s *Store) DeleteKey(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&KeyModel{}, "id = ?", id).Error
}

func (s *Store) FindKeyByIdentification(ctx context.Context, kind ac.KeyKind, identification string) (*ac.Key, error) {
	var model KeyModel
	err := s.db.WithContext(ctx).First(&model, "kind = ? AND identification = ?", kind, identification).Error
	if err != nil {
		return nil, translate(err)
	}
	return model.ToKey(), nil
}

func (s *Store) FindKeyByUserID(ctx context.Context, kind ac.KeyKind, userID int64) (*ac.Key, error) {
	var model KeyModel
	err := s.db.WithContext(ctx).First(&model, "kind = ? AND user_id = ?", kind, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return model.ToKey(), nil
}

// =============================================================================
// Sessions
// =============================================================================

func (s *Store) GetSession(ctx context.Context, id int64) (*ac.Session, error) {
	var model SessionModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return model.ToSession(), nil
}

func (s *Store) GetAllSessions(ctx context.Context, userID int64) ([]*ac.Session, error) {
	var models []SessionModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, err
	}
	sessions := make([]*ac.Session, len(models))
	for i := range models {
		sessions[i] = models[i].ToSession()
	}
	return sessions, nil
}

func (s *Store) CreateSession(ctx context.Context, session ac.SessionBody) (*ac.Session, error) {
	model := &SessionModel{
		Token:     session.Token,
		UserID:    session.UserID,
		KeyID:     session.KeyID,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToSession(), nil
}

func (s *Store) UpdateSession(ctx context.Context, id int64, update ac.SessionUpdate) (*ac.Session, error) {
	if update.ExpiresAt != nil {
		res := s.db.WithContext(ctx).Model(&SessionModel{}).Where("id = ?", id).
			Update("expires_at", *update.ExpiresAt)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ac.ErrNotFound
		}
	}
	return s.GetSession(ctx, id)
}

func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&SessionModel{}, "id = ?", id).Error
}

// DeleteSessionByIDToken deletes by the (id, token) pair so a wrong token
// never removes a session that merely shares the id.
func (s *Store) DeleteSessionByIDToken(ctx context.Context, id int64, token string) error {
	return s.db.WithContext(ctx).Delete(&SessionModel{}, "id = ? AND token = ?", id, token).Error
}

func (s *Store) DeleteAllSessions(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Delete(&SessionModel{}, "user_id = ?", userID).Error
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Delete(&SessionModel{}, "expires_at IS NOT NULL AND expires_at < ?", time.Now()).Error
}

func userPatch(update ac.UserProfile) map[string]any {
	patch := map[string]any{}
	if update.Email != nil {
		patch["email"] = *update.Email
	}
	if update.FirstName != nil {
		patch["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		patch["last_name"] = *update.LastName
	}
	if update.PhotoURL != nil {
		patch["photo_url"] = *update.PhotoURL
	}
	return patch
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ac.ErrNotFound
	}
	return err
}
