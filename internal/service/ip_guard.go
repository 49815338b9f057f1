package service

import (
	"context"
	"time"
)

// IPGuard throttles login attempts per source IP. It is consulted only for
// attempts against usernames that do not exist, which slows down username
// enumeration without leaking existence through account-lock behavior.
type IPGuard interface {
	// Check returns the remaining lock time for the IP, zero when unlocked.
	Check(ctx context.Context, ip string) (time.Duration, error)
	// RegisterFailure counts one unknown-username attempt. Crossing the
	// configured maximum locks the IP for the window and returns its length.
	RegisterFailure(ctx context.Context, ip string) (time.Duration, error)
	// Reset clears the counter and any lock for the IP.
	Reset(ctx context.Context, ip string) error
}

// IPGuardPolicy bounds unknown-username attempts per IP inside a rolling
// window. The window also serves as the lock duration once exceeded.
type IPGuardPolicy struct {
	MaxAttempts int
	LockWindow  time.Duration
}

func (p IPGuardPolicy) normalize() IPGuardPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 10
	}
	if p.LockWindow <= 0 {
		p.LockWindow = 15 * time.Minute
	}
	return p
}
