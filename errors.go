package whisperwall

import "errors"

var (
	ErrDuplicateUsername = errors.New("username already taken")
	ErrNotFound          = errors.New("not found")

	// ErrInvalidCredentials covers a failed password check. Handlers must
	// present it identically to ErrNotFound so login responses never reveal
	// whether a username exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrStoreUnavailable = errors.New("user store unavailable")
	ErrSessionInvalid   = errors.New("session invalid")
)
