package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ww "github.com/panyam/whisperwall"
)

// fsUser is the on-disk shape of a user record.
type fsUser struct {
	UserId       string  `json:"user_id"`
	Username     *string `json:"username,omitempty"`
	PasswordHash *string `json:"password_hash,omitempty"`
	GoogleId     *string `json:"google_id,omitempty"`
	Secret       *string `json:"secret,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *fsUser) toUser() *ww.User {
	return &ww.User{
		ID:           u.UserId,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		GoogleID:     u.GoogleId,
		Secret:       u.Secret,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// FSUserStore stores users as JSON files. Intended for development and tests;
// a single process-wide mutex serializes every operation, which also makes
// EnsureGoogleUser atomic. Lookups by username or google id are linear scans,
// which is fine at this store's scale.
type FSUserStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) userPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", userId+".json")
}

func (s *FSUserStore) CreateLocalUser(ctx context.Context, username, passwordHash string) (*ww.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.scan(func(u *fsUser) bool {
		return u.Username != nil && *u.Username == username
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ww.ErrDuplicateUsername
	}

	now := time.Now()
	user := &fsUser{
		UserId:       ww.NewUserID(),
		Username:     &username,
		PasswordHash: &passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.save(user); err != nil {
		return nil, err
	}
	return user.toUser(), nil
}

func (s *FSUserStore) GetUserById(ctx context.Context, userId string) (*ww.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.load(userId)
	if err != nil {
		return nil, err
	}
	return user.toUser(), nil
}

func (s *FSUserStore) GetUserByUsername(ctx context.Context, username string) (*ww.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.scan(func(u *fsUser) bool {
		return u.Username != nil && *u.Username == username
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ww.ErrNotFound
	}
	return user.toUser(), nil
}

func (s *FSUserStore) EnsureGoogleUser(ctx context.Context, googleId string) (*ww.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.scan(func(u *fsUser) bool {
		return u.GoogleId != nil && *u.GoogleId == googleId
	})
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user.toUser(), nil
	}

	now := time.Now()
	user = &fsUser{
		UserId:    ww.NewUserID(),
		GoogleId:  &googleId,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(user); err != nil {
		return nil, err
	}
	return user.toUser(), nil
}

func (s *FSUserStore) SetSecret(ctx context.Context, userId, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.load(userId)
	if err != nil {
		return err
	}
	user.Secret = &secret
	user.UpdatedAt = time.Now()
	return s.save(user)
}

func (s *FSUserStore) ListUsersWithSecrets(ctx context.Context) ([]*ww.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ww.User
	err := s.scanAll(func(u *fsUser) {
		if u.Secret != nil {
			out = append(out, u.toUser())
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FSUserStore) load(userId string) (*fsUser, error) {
	data, err := os.ReadFile(s.userPath(userId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ww.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
	}

	var user fsUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
	}
	return &user, nil
}

func (s *FSUserStore) save(user *fsUser) error {
	path := s.userPath(user.UserId)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
	}
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

// scan returns the first user matching the predicate, or nil.
func (s *FSUserStore) scan(match func(*fsUser) bool) (*fsUser, error) {
	var found *fsUser
	err := s.scanAll(func(u *fsUser) {
		if found == nil && match(u) {
			found = u
		}
	})
	return found, err
}

func (s *FSUserStore) scanAll(visit func(*fsUser)) error {
	dir := filepath.Join(s.StoragePath, "users")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		user, err := s.load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return err
		}
		visit(user)
	}
	return nil
}
