package gae

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	ww "github.com/panyam/whisperwall"
)

// Kind constants for Datastore entities
const (
	KindUser     = "User"
	KindUsername = "Username"
	KindGoogleID = "GoogleID"
)

// UserStore implements ww.UserStore using Google Cloud Datastore. Uniqueness
// of usernames and google ids is enforced through keyed mapping entities
// created in the same transaction as the user, so find-or-create is atomic
// on the store side.
type UserStore struct {
	client    *datastore.Client
	namespace string
}

// NewUserStore creates a new Datastore-backed UserStore.
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{client: client, namespace: namespace}
}

func (s *UserStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) CreateLocalUser(ctx context.Context, username, passwordHash string) (*ww.User, error) {
	userId := ww.NewUserID()
	now := time.Now()
	entity := &UserEntity{
		Key:          s.namespacedKey(KindUser, userId),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	usernameKey := s.namespacedKey(KindUsername, username)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing UsernameEntity
		err := tx.Get(usernameKey, &existing)
		if err == nil {
			return ww.ErrDuplicateUsername
		}
		if err != datastore.ErrNoSuchEntity {
			return err
		}
		if _, err := tx.Put(usernameKey, &UsernameEntity{Key: usernameKey, UserID: userId, CreatedAt: now}); err != nil {
			return err
		}
		_, err = tx.Put(entity.Key, entity)
		return err
	})
	if err != nil {
		if errors.Is(err, ww.ErrDuplicateUsername) {
			return nil, ww.ErrDuplicateUsername
		}
		return nil, storeErr(err)
	}
	return entity.ToUser(), nil
}

func (s *UserStore) GetUserById(ctx context.Context, userId string) (*ww.User, error) {
	var entity UserEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUser, userId), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, ww.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return entity.ToUser(), nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*ww.User, error) {
	var mapping UsernameEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUsername, username), &mapping); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, ww.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return s.GetUserById(ctx, mapping.UserID)
}

func (s *UserStore) EnsureGoogleUser(ctx context.Context, googleId string) (*ww.User, error) {
	googleKey := s.namespacedKey(KindGoogleID, googleId)

	var out *ww.User
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		out = nil

		var mapping GoogleIDEntity
		err := tx.Get(googleKey, &mapping)
		if err == nil {
			var entity UserEntity
			if err := tx.Get(s.namespacedKey(KindUser, mapping.UserID), &entity); err != nil {
				return err
			}
			out = entity.ToUser()
			return nil
		}
		if err != datastore.ErrNoSuchEntity {
			return err
		}

		// two concurrent callbacks for the same identifier contend on the
		// mapping key; the transaction retry resolves the loser to the
		// winner's record
		userId := ww.NewUserID()
		now := time.Now()
		entity := &UserEntity{
			Key:       s.namespacedKey(KindUser, userId),
			GoogleID:  googleId,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.Put(googleKey, &GoogleIDEntity{Key: googleKey, UserID: userId, CreatedAt: now}); err != nil {
			return err
		}
		if _, err := tx.Put(entity.Key, entity); err != nil {
			return err
		}
		out = entity.ToUser()
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *UserStore) SetSecret(ctx context.Context, userId, secret string) error {
	key := s.namespacedKey(KindUser, userId)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity UserEntity
		if err := tx.Get(key, &entity); err != nil {
			return err
		}
		entity.Key = key
		entity.Secret = secret
		entity.HasSecret = true
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(key, &entity)
		return err
	})
	if err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return ww.ErrNotFound
		}
		return storeErr(err)
	}
	return nil
}

func (s *UserStore) ListUsersWithSecrets(ctx context.Context) ([]*ww.User, error) {
	query := datastore.NewQuery(KindUser).
		FilterField("has_secret", "=", true)
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	var users []*ww.User
	it := s.client.Run(ctx, query)
	for {
		var entity UserEntity
		_, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, storeErr(err)
		}
		users = append(users, entity.ToUser())
	}
	return users, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ww.ErrStoreUnavailable, err)
}
