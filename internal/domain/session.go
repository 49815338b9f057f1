package domain

import "time"

// Session binds the single active refresh token of a user to its last
// issuance time. One row per user: a new login overwrites the previous row,
// so the latest refresh token is the only valid one.
type Session struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	RefreshToken string    `gorm:"size:1024;uniqueIndex;not null" json:"-"`
	LastLogin    time.Time `gorm:"index;not null" json:"last_login"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
