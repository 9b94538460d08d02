package whisperwall

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the only entity in the system. A user either registered locally
// (Username + PasswordHash set) or arrived via Google login (GoogleID set);
// at least one of the two identities is always present.
type User struct {
	ID           string
	Username     *string
	PasswordHash *string
	GoogleID     *string
	Secret       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSecret reports whether the user has ever submitted a secret. An empty
// string counts: secrets are accepted as-is with no validation.
func (u *User) HasSecret() bool { return u.Secret != nil }

// NewUserID returns a fresh opaque user id. IDs are assigned once at creation
// and never change.
func NewUserID() string { return uuid.NewString() }

// UserStore is the persistence contract for users. Implementations live under
// stores/ and are responsible for their own concurrency control; in particular
// EnsureGoogleUser must be atomic with respect to concurrent calls carrying
// the same google id.
type UserStore interface {
	// CreateLocalUser creates a user with a unique username and a bcrypt
	// password hash. Returns ErrDuplicateUsername if the username is taken.
	CreateLocalUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserById retrieves a user by id. Returns ErrNotFound if absent.
	GetUserById(ctx context.Context, userId string) (*User, error)

	// GetUserByUsername retrieves a locally-registered user by username.
	// Returns ErrNotFound if absent.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// EnsureGoogleUser finds the user with the given google subject id,
	// creating one atomically if none exists. Two concurrent calls with the
	// same id must resolve to the same record.
	EnsureGoogleUser(ctx context.Context, googleId string) (*User, error)

	// SetSecret overwrites the user's secret. Returns ErrNotFound if the
	// user does not exist.
	SetSecret(ctx context.Context, userId, secret string) error

	// ListUsersWithSecrets returns every user whose secret has been set.
	ListUsersWithSecrets(ctx context.Context) ([]*User, error)
}
