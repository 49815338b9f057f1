package service

import "time"

const (
	defaultMaxFailedAttempts = 5
	defaultLockDuration      = 15 * time.Minute
)

// LockoutPolicy governs the per-account lockout state machine: after
// MaxAttempts consecutive failures the account locks for LockDuration.
// Unlocking is lazy: the next login attempt after the window clears it.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

func (p LockoutPolicy) normalize() LockoutPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxFailedAttempts
	}
	if p.LockDuration <= 0 {
		p.LockDuration = defaultLockDuration
	}
	return p
}
