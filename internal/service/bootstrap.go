package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cargolinq/freight-auth-service/internal/domain"
	"github.com/cargolinq/freight-auth-service/internal/repository"
	"github.com/cargolinq/freight-auth-service/internal/security"
)

// BootstrapAdminUser creates the initial admin account when it does not
// exist yet, so a fresh deployment has a credential to log in with. An
// existing account is left untouched. Username and password must be supplied
// together; both empty disables the bootstrap.
func BootstrapAdminUser(ctx context.Context, users repository.UserRepository, hasher *security.PasswordHasher, username, password string) error {
	username = strings.TrimSpace(strings.ToLower(username))
	password = strings.TrimSpace(password)
	if username == "" && password == "" {
		return nil
	}
	if username == "" || password == "" {
		return fmt.Errorf("admin bootstrap requires both username and password")
	}

	if _, err := users.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup admin user: %w", err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return users.Create(ctx, &domain.User{
		Username:          username,
		PasswordHash:      hash,
		Role:              domain.RoleAdmin,
		MustResetPassword: true,
	})
}
