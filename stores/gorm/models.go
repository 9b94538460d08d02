package gorm

import (
	"time"

	ww "github.com/panyam/whisperwall"
)

// UserModel is the relational shape of a user. Username and GoogleID carry
// partial unique indexes: uniqueness only applies to non-null values, so
// local-only and google-only accounts coexist in one table.
type UserModel struct {
	ID           string  `gorm:"primaryKey;size:64"`
	Username     *string `gorm:"uniqueIndex;size:255"`
	PasswordHash *string `gorm:"size:255"`
	GoogleID     *string `gorm:"uniqueIndex;size:255;column:google_id"`
	Secret       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToUser() *ww.User {
	return &ww.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		GoogleID:     m.GoogleID,
		Secret:       m.Secret,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
