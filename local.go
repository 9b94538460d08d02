package whisperwall

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Allows local username/password based authentication. The plaintext password
// only ever exists on the stack of these two methods; it is never persisted
// and never logged.
type LocalAuth struct {
	Store UserStore
}

// Register derives a salted hash from the password and stores a new user.
// Returns ErrDuplicateUsername if the username is already taken.
func (a *LocalAuth) Register(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return a.Store.CreateLocalUser(ctx, username, string(hash))
}

// Verify checks a username/password pair against the stored hash. Returns
// ErrNotFound when no local user matches, ErrInvalidCredentials when the hash
// comparison fails. bcrypt's comparison is constant-time with respect to the
// stored hash.
func (a *LocalAuth) Verify(ctx context.Context, username, password string) (*User, error) {
	user, err := a.Store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
