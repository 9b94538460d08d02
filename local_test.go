package whisperwall_test

import (
	"context"
	"errors"
	"testing"

	ww "github.com/panyam/whisperwall"
	"github.com/panyam/whisperwall/stores/fs"
)

func setupAuth(t *testing.T) *ww.LocalAuth {
	t.Helper()
	return &ww.LocalAuth{Store: fs.NewFSUserStore(t.TempDir())}
}

func TestRegisterThenVerify(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "s3cretpass")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Expected a user id to be assigned")
	}
	if user.Username == nil || *user.Username != "alice" {
		t.Errorf("Expected username alice, got %v", user.Username)
	}
	if user.PasswordHash == nil || *user.PasswordHash == "s3cretpass" {
		t.Error("Expected a hashed password, never the plaintext")
	}

	verified, err := auth.Verify(ctx, "alice", "s3cretpass")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verified.ID != user.ID {
		t.Errorf("Expected same user id %s, got %s", user.ID, verified.ID)
	}
}

func TestVerifyErrors(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "bob", "password123"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"wrong password", "bob", "wrongpassword", ww.ErrInvalidCredentials},
		{"unknown user", "nosuchuser", "password123", ww.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Verify(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	first, err := auth.Register(ctx, "carol", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err = auth.Register(ctx, "carol", "otherpassword")
	if !errors.Is(err, ww.ErrDuplicateUsername) {
		t.Fatalf("Expected ErrDuplicateUsername, got %v", err)
	}

	// the store must still hold exactly the first record
	stored, err := auth.Store.GetUserByUsername(ctx, "carol")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if stored.ID != first.ID {
		t.Errorf("Expected the original record %s, got %s", first.ID, stored.ID)
	}
	if _, err := auth.Verify(ctx, "carol", "otherpassword"); !errors.Is(err, ww.ErrInvalidCredentials) {
		t.Errorf("Second registration must not have replaced the credential, got %v", err)
	}
}

func TestRegisterRequiresCredentials(t *testing.T) {
	auth := setupAuth(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "", "password123"); err == nil {
		t.Error("Expected error for empty username")
	}
	if _, err := auth.Register(ctx, "dave", ""); err == nil {
		t.Error("Expected error for empty password")
	}
}
