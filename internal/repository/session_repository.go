package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cargolinq/freight-auth-service/internal/domain"
	"github.com/cargolinq/freight-auth-service/internal/observability"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	// Upsert replaces any existing session row for the user with the new
	// refresh token. Last writer wins: concurrent logins for the same user
	// race to own the single row.
	Upsert(ctx context.Context, userID uint, refreshToken string) error
	FindByToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	// DeleteByToken removes the row and returns the owning user id, or
	// ErrSessionNotFound when no row matched.
	DeleteByToken(ctx context.Context, refreshToken string) (uint, error)
	// DeleteOlderThan bulk-deletes every row whose last_login is at or before
	// the cutoff. Idempotent; zero matches is not an error.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Upsert(ctx context.Context, userID uint, refreshToken string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"refresh_token", "last_login", "updated_at"}),
	}).Create(&domain.Session{
		UserID:       userID,
		RefreshToken: refreshToken,
		LastLogin:    now,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "upsert", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "session", "upsert", "error")
		return errors.New("session upsert affected no rows")
	}
	observability.RecordRepositoryOperation(ctx, "session", "upsert", "success")
	return nil
}

func (r *GormSessionRepository) FindByToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", "find_by_token", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "session", "find_by_token", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "find_by_token", "success")
	return &s, nil
}

func (r *GormSessionRepository) DeleteByToken(ctx context.Context, refreshToken string) (uint, error) {
	var userID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s domain.Session
		if err := tx.Where("refresh_token = ?", refreshToken).First(&s).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		userID = s.UserID
		return tx.Delete(&s).Error
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", "delete_by_token", "not_found")
		} else {
			observability.RecordRepositoryOperation(ctx, "session", "delete_by_token", "error")
		}
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_token", "success")
	return userID, nil
}

func (r *GormSessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_login <= ?", cutoff).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_older_than", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_older_than", "success")
	return res.RowsAffected, nil
}
