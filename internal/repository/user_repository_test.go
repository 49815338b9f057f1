package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cargolinq/freight-auth-service/internal/domain"
)

func TestRegisterFailedLoginLocksAtThreshold(t *testing.T) {
	db := newDBForTest(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, users, "carol")

	const threshold = 5
	for i := 1; i <= threshold; i++ {
		attempts, locked, err := users.RegisterFailedLogin(ctx, u.ID, threshold)
		if err != nil {
			t.Fatalf("register failure %d: %v", i, err)
		}
		if attempts != i {
			t.Fatalf("after failure %d: attempts = %d", i, attempts)
		}
		wantLocked := i >= threshold
		if locked != wantLocked {
			t.Fatalf("after failure %d: locked = %v, want %v", i, locked, wantLocked)
		}
	}

	stored, err := users.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if !stored.AccountLocked {
		t.Fatal("account should be locked after threshold failures")
	}
	if stored.LastFailedLoginAt == nil {
		t.Fatal("last failed login timestamp should be set")
	}
	if time.Since(*stored.LastFailedLoginAt) > time.Minute {
		t.Fatalf("last failed login timestamp is stale: %v", stored.LastFailedLoginAt)
	}
}

func TestRegisterFailedLoginUnknownUser(t *testing.T) {
	db := newDBForTest(t)
	users := NewUserRepository(db)

	if _, _, err := users.RegisterFailedLogin(context.Background(), 9999, 5); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestClearFailedLoginsResetsLockState(t *testing.T) {
	db := newDBForTest(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, users, "dave")
	for i := 0; i < 5; i++ {
		if _, _, err := users.RegisterFailedLogin(ctx, u.ID, 5); err != nil {
			t.Fatalf("register failure: %v", err)
		}
	}

	if err := users.ClearFailedLogins(ctx, u.ID); err != nil {
		t.Fatalf("clear failed logins: %v", err)
	}

	stored, err := users.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if stored.FailedLoginAttempts != 0 {
		t.Fatalf("attempts = %d after clear", stored.FailedLoginAttempts)
	}
	if stored.AccountLocked {
		t.Fatal("account should be unlocked after clear")
	}
	if stored.LastFailedLoginAt != nil {
		t.Fatalf("last failed login should be cleared, got %v", stored.LastFailedLoginAt)
	}
}

func TestUpdatePasswordClearsResetFlag(t *testing.T) {
	db := newDBForTest(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	u := &domain.User{Username: "erin", PasswordHash: "old-hash", Role: domain.RoleViewer, MustResetPassword: true}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := users.UpdatePassword(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	stored, err := users.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if stored.PasswordHash != "new-hash" {
		t.Fatalf("password hash = %q", stored.PasswordHash)
	}
	if stored.MustResetPassword {
		t.Fatal("must-reset flag should be cleared after a password change")
	}
}

func TestUpdatePasswordUnknownUser(t *testing.T) {
	db := newDBForTest(t)
	users := NewUserRepository(db)

	if err := users.UpdatePassword(context.Background(), 4242, "hash"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFindByUsername(t *testing.T) {
	db := newDBForTest(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, users, "frank")

	got, err := users.FindByUsername(ctx, "frank")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if got.Username != "frank" {
		t.Fatalf("username = %q", got.Username)
	}

	if _, err := users.FindByUsername(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
