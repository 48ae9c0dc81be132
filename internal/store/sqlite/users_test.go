package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

func TestCreateGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "Reader@Example.com")

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Email != "Reader@Example.com" {
		t.Errorf("expected original email casing preserved, got %q", got.Email)
	}
	if got.Role != domain.RoleCustomer {
		t.Errorf("expected customer role, got %q", got.Role)
	}
	if got.PasswordHash == "" {
		t.Error("expected password hash to round-trip")
	}
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "Reader@Example.com")

	got, err := s.GetUserByEmail(ctx, "READER@example.COM")
	if err != nil {
		t.Fatalf("get user by email: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, got.ID)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "reader@example.com")

	dup := &domain.User{
		Email:        "READER@EXAMPLE.COM",
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
	}
	dup.ID = id.MustGenerate(id.PrefixUser)
	dup.InitTimestamps()

	if err := s.CreateUser(ctx, dup); err != store.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists for same email in different case, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "reader@example.com")

	user.FirstName = "Changed"
	user.Disabled = true
	user.Role = domain.RoleAdmin
	user.Touch()
	if err := s.UpdateUser(ctx, user); err != nil {
		t.Fatalf("update user: %v", err)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.FirstName != "Changed" {
		t.Errorf("expected updated first name, got %q", got.FirstName)
	}
	if !got.Disabled {
		t.Error("expected user to be disabled")
	}
	if !got.IsAdmin() {
		t.Error("expected admin role")
	}
}

func TestTouchLastLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "reader@example.com")
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if err := s.TouchLastLogin(ctx, user.ID, at); err != nil {
		t.Fatalf("touch last login: %v", err)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !got.LastLoginAt.Equal(at) {
		t.Errorf("expected last login %v, got %v", at, got.LastLoginAt)
	}

	if err := s.TouchLastLogin(ctx, "user-missing", at); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUser_FreesEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "reader@example.com")

	if err := s.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := s.GetUser(ctx, user.ID); err != store.ErrNotFound {
		t.Errorf("expected deleted user hidden, got %v", err)
	}

	// The unique email index is partial, so a new account can reuse the address.
	seedUser(t, s, "reader@example.com")
}

func TestListUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "a@example.com")
	seedUser(t, s, "b@example.com")

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}
