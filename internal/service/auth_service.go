package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cargolinq/freight-auth-service/internal/domain"
	"github.com/cargolinq/freight-auth-service/internal/observability"
	"github.com/cargolinq/freight-auth-service/internal/repository"
	"github.com/cargolinq/freight-auth-service/internal/security"
)

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

// AuthService owns the login, refresh, password-reset, and logout rules.
// Collaborators are injected; there is no package-level state.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	hasher   *security.PasswordHasher
	tokens   *security.JWTManager
	ipGuard  IPGuard
	lockout  LockoutPolicy
	logger   *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	hasher *security.PasswordHasher,
	tokens *security.JWTManager,
	ipGuard IPGuard,
	lockout LockoutPolicy,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		ipGuard:  ipGuard,
		lockout:  lockout.normalize(),
		logger:   logger,
	}
}

// Login verifies credentials and, on success, issues an access/refresh token
// pair and replaces the user's session row. Failure paths feed the
// per-account or per-IP lockout trackers; unknown usernames and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	if remaining, err := s.ipGuard.Check(ctx, ip); err != nil {
		return nil, fmt.Errorf("check ip guard: %w", err)
	} else if remaining > 0 {
		return nil, &TooManyRequestsError{RetryAfter: remaining}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, s.registerUnknownUsername(ctx, ip)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.AccountLocked {
		remaining := user.LockRemaining(s.lockout.LockDuration, time.Now().UTC())
		if remaining > 0 {
			return nil, &AccountLockedError{RetryAfter: remaining}
		}
		// Lock window lapsed: lazy unlock before checking the password.
		if err := s.users.ClearFailedLogins(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("clear lapsed lock: %w", err)
		}
		user.AccountLocked = false
		user.FailedLoginAttempts = 0
		user.LastFailedLoginAt = nil
		observability.RecordLockoutEvent(ctx, "account", "unlocked")
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		attempts, locked, err := s.users.RegisterFailedLogin(ctx, user.ID, s.lockout.MaxAttempts)
		if err != nil {
			return nil, fmt.Errorf("register failed login: %w", err)
		}
		if locked {
			s.logger.Warn("account locked after repeated failures",
				"username", username, "attempts", attempts)
			observability.RecordLockoutEvent(ctx, "account", "locked")
			return nil, &AccountLockedError{RetryAfter: s.lockout.LockDuration}
		}
		return nil, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 {
		if err := s.users.ClearFailedLogins(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("clear failed logins: %w", err)
		}
		user.FailedLoginAttempts = 0
		user.LastFailedLoginAt = nil
	}

	// A successful login also forgives the caller's unknown-username tally.
	if err := s.ipGuard.Reset(ctx, ip); err != nil {
		s.logger.Warn("reset ip guard failed", "ip", ip, "error", err)
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.sessions.Upsert(ctx, user.ID, refresh); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func (s *AuthService) registerUnknownUsername(ctx context.Context, ip string) error {
	lockWindow, err := s.ipGuard.RegisterFailure(ctx, ip)
	if err != nil {
		return fmt.Errorf("register ip failure: %w", err)
	}
	if lockWindow > 0 {
		s.logger.Warn("ip locked after repeated unknown-username attempts", "ip", ip)
		observability.RecordLockoutEvent(ctx, "ip", "locked")
		return &TooManyRequestsError{RetryAfter: lockWindow}
	}
	return ErrInvalidCredentials
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token and its session row are left untouched. The user is
// re-resolved so revoked accounts and stale role flags do not survive in
// fresh access tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", ErrMissingSessionToken
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	if _, err := s.sessions.FindByToken(ctx, refreshToken); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("lookup session: %w", err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		// A session row referencing a vanished user is an internal
		// inconsistency, not a caller mistake.
		return "", fmt.Errorf("resolve refresh token user: %w", err)
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// ResetPassword rehashes the credential, marks the forced-reset flag
// satisfied, and revokes the session behind the supplied cookie so the next
// call must log in with the new password.
func (s *AuthService) ResetPassword(ctx context.Context, userID uint, sessionToken, newPassword, confirmPassword string) error {
	if strings.TrimSpace(sessionToken) == "" {
		return ErrMissingSessionToken
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("persist new password: %w", err)
	}

	if _, err := s.sessions.DeleteByToken(ctx, sessionToken); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Already gone; the reset still forced re-login.
			return nil
		}
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Logout deletes the session row behind the cookie value. An absent row
// surfaces as ErrSessionNotFound; the HTTP layer presents that as an
// already-completed logout.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) (uint, error) {
	if strings.TrimSpace(sessionToken) == "" {
		return 0, ErrMissingSessionToken
	}
	userID, err := s.sessions.DeleteByToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("delete session: %w", err)
	}
	return userID, nil
}
