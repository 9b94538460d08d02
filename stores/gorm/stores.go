package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	ww "github.com/panyam/whisperwall"
)

// AutoMigrate runs database migrations for the whisperwall tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserStore implements ww.UserStore on a relational database through GORM.
// The driver is chosen by the caller.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateLocalUser(ctx context.Context, username, passwordHash string) (*ww.User, error) {
	model := UserModel{
		ID:           ww.NewUserID(),
		Username:     &username,
		PasswordHash: &passwordHash,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing UserModel
		err := tx.First(&existing, "username = ?", username).Error
		if err == nil {
			return ww.ErrDuplicateUsername
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return storeErr(err)
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		// the unique index closes the check/insert race the transaction
		// read cannot see on lower isolation levels
		if errors.Is(err, ww.ErrDuplicateUsername) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ww.ErrDuplicateUsername
		}
		if errors.Is(err, ww.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserById(ctx context.Context, userId string) (*ww.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ww.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*ww.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ww.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) EnsureGoogleUser(ctx context.Context, googleId string) (*ww.User, error) {
	db := s.db.WithContext(ctx)

	var model UserModel
	err := db.First(&model, "google_id = ?", googleId).Error
	if err == nil {
		return model.ToUser(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err)
	}

	// conditional insert keyed on the unique google_id index: of two
	// concurrent callbacks exactly one row survives
	fresh := UserModel{ID: ww.NewUserID(), GoogleID: &googleId}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "google_id"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, storeErr(err)
	}

	// re-read: either our row or the concurrent winner's
	if err := db.First(&model, "google_id = ?", googleId).Error; err != nil {
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *UserStore) SetSecret(ctx context.Context, userId, secret string) error {
	res := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", userId).
		Updates(map[string]any{"secret": secret, "updated_at": time.Now()})
	if res.Error != nil {
		return storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ww.ErrNotFound
	}
	return nil
}

func (s *UserStore) ListUsersWithSecrets(ctx context.Context) ([]*ww.User, error) {
	var models []UserModel
	if err := s.db.WithContext(ctx).Where("secret IS NOT NULL").Find(&models).Error; err != nil {
		return nil, storeErr(err)
	}
	users := make([]*ww.User, len(models))
	for i := range models {
		users[i] = models[i].ToUser()
	}
	return users, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
}
