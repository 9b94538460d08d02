package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	ww "github.com/panyam/whisperwall"
)

// UserEntity is the Datastore entity for users. Optional fields are stored as
// empty strings; HasSecret is the indexed presence flag the secrets query
// filters on (Datastore cannot query "secret is not null" directly).
type UserEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	Username     string         `datastore:"username"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	GoogleID     string         `datastore:"google_id"`
	Secret       string         `datastore:"secret,noindex"`
	HasSecret    bool           `datastore:"has_secret"`
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
}

func (e *UserEntity) ToUser() *ww.User {
	user := &ww.User{
		ID:        e.Key.Name,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Username != "" {
		username := e.Username
		user.Username = &username
	}
	if e.PasswordHash != "" {
		hash := e.PasswordHash
		user.PasswordHash = &hash
	}
	if e.GoogleID != "" {
		googleId := e.GoogleID
		user.GoogleID = &googleId
	}
	if e.HasSecret {
		secret := e.Secret
		user.Secret = &secret
	}
	return user
}

// UsernameEntity maps a username to a user id. Keyed by the username itself,
// so a transactional insert doubles as the uniqueness check.
type UsernameEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	UserID    string         `datastore:"user_id"`
	CreatedAt time.Time      `datastore:"created_at"`
}

// GoogleIDEntity maps a google subject identifier to a user id.
type GoogleIDEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	UserID    string         `datastore:"user_id"`
	CreatedAt time.Time      `datastore:"created_at"`
}
