package domain

import "time"

// Role tags carried in token payloads. The auth core does not interpret them
// beyond embedding; the reference-data handlers own the permission semantics.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

type User struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Username            string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash        string     `gorm:"size:128;not null" json:"-"`
	Role                string     `gorm:"size:32;not null;default:viewer" json:"role"`
	MustResetPassword   bool       `gorm:"not null;default:false" json:"must_reset_password"`
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	AccountLocked       bool       `gorm:"not null;default:false" json:"-"`
	LastFailedLoginAt   *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// LockRemaining reports how much of the lock window is still ahead of now.
// Zero means the lock has lapsed (or was never set) and a login attempt may
// clear it.
func (u *User) LockRemaining(lockDuration time.Duration, now time.Time) time.Duration {
	if !u.AccountLocked || u.LastFailedLoginAt == nil {
		return 0
	}
	remaining := u.LastFailedLoginAt.Add(lockDuration).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
