package service

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by the auth flows. The invalid-credentials message
// is identical for unknown usernames and wrong passwords so responses cannot
// be used to probe which usernames exist.
var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrMissingSessionToken = errors.New("session token is required")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrPasswordMismatch    = errors.New("passwords do not match")
)

// AccountLockedError reports a per-account lockout with the time left on the
// lock window, so the boundary can render a human-readable estimate.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %s", e.RetryAfter.Round(time.Second))
}

// TooManyRequestsError reports per-IP throttling.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e *TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many failed attempts, try again in %s", e.RetryAfter.Round(time.Second))
}
