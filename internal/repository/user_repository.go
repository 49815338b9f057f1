package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/cargolinq/freight-auth-service/internal/domain"
	"github.com/cargolinq/freight-auth-service/internal/observability"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	// RegisterFailedLogin atomically increments the failed-attempt counter,
	// stamps last_failed_login_at, and sets account_locked once the new count
	// reaches the threshold. Returns the post-increment count and lock state.
	// A single locked transaction keeps concurrent failures from undercounting.
	RegisterFailedLogin(ctx context.Context, userID uint, threshold int) (attempts int, locked bool, err error)
	// ClearFailedLogins resets the counter and lock fields after a successful
	// login or a lapsed lock.
	ClearFailedLogins(ctx context.Context, userID uint) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", "find_by_id", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_by_id", "success")
	return &u, nil
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", "find_by_username", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", "find_by_username", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_by_username", "success")
	return &u, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "create", "success")
	return nil
}

func (r *GormUserRepository) Update(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "update", "success")
	return nil
}

func (r *GormUserRepository) RegisterFailedLogin(ctx context.Context, userID uint, threshold int) (int, bool, error) {
	var attempts int
	var locked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Increment in SQL so concurrent failures never undercount.
		res := tx.Model(&domain.User{}).Where("id = ?", userID).Updates(map[string]any{
			"failed_login_attempts": gorm.Expr("failed_login_attempts + 1"),
			"last_failed_login_at":  time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		if err := tx.Model(&domain.User{}).
			Where("id = ? AND failed_login_attempts >= ?", userID, threshold).
			Update("account_locked", true).Error; err != nil {
			return err
		}
		var u domain.User
		if err := tx.First(&u, userID).Error; err != nil {
			return err
		}
		attempts = u.FailedLoginAttempts
		locked = u.AccountLocked
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", "register_failed_login", "not_found")
		} else {
			observability.RecordRepositoryOperation(ctx, "user", "register_failed_login", "error")
		}
		return 0, false, err
	}
	observability.RecordRepositoryOperation(ctx, "user", "register_failed_login", "success")
	return attempts, locked, nil
}

func (r *GormUserRepository) ClearFailedLogins(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(map[string]any{
		"failed_login_attempts": 0,
		"account_locked":        false,
		"last_failed_login_at":  nil,
	}).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "clear_failed_logins", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "clear_failed_logins", "success")
	return nil
}

func (r *GormUserRepository) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Updates(map[string]any{
		"password_hash":       passwordHash,
		"must_reset_password": false,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "user", "update_password", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "user", "update_password", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "update_password", "success")
	return nil
}
