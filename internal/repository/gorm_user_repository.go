package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"nextgenrdp/api/internal/models"
)

type userRecord struct {
	ID                  string `gorm:"primaryKey"`
	Email               string `gorm:"uniqueIndex;not null"`
	FullName            string `gorm:"not null;default:''"`
	PasswordHash        []byte
	FailedLoginAttempts int  `gorm:"not null;default:0"`
	AccountLocked       bool `gorm:"not null;default:false;index"`
	IsAdmin             bool `gorm:"not null;default:false"`
	EmailVerified       bool `gorm:"not null;default:false"`
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (userRecord) TableName() string {
	return "users"
}

func (r userRecord) toModel() models.User {
	return models.User{
		ID:                  r.ID,
		Email:               r.Email,
		FullName:            r.FullName,
		PasswordHash:        r.PasswordHash,
		FailedLoginAttempts: r.FailedLoginAttempts,
		AccountLocked:       r.AccountLocked,
		IsAdmin:             r.IsAdmin,
		EmailVerified:       r.EmailVerified,
		LastLogin:           r.LastLogin,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// GormUserRepository is the ORM-backed store used with the embedded sqlite
// driver.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&userRecord{})
}

func (r *GormUserRepository) Create(ctx context.Context, user models.User) error {
	rec := userRecord{
		ID:                  user.ID,
		Email:               user.Email,
		FullName:            user.FullName,
		PasswordHash:        user.PasswordHash,
		FailedLoginAttempts: user.FailedLoginAttempts,
		AccountLocked:       user.AccountLocked,
		IsAdmin:             user.IsAdmin,
		EmailVerified:       user.EmailVerified,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicate(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *GormUserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormUserRepository) RecordFailedLogin(ctx context.Context, id string, attempts int, locked bool) error {
	return r.update(ctx, id, map[string]any{
		"failed_login_attempts": attempts,
		"account_locked":        gorm.Expr("account_locked OR ?", locked),
	})
}

func (r *GormUserRepository) RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"failed_login_attempts": 0,
		"last_login":            at,
	})
}

func (r *GormUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).UpdateColumn("last_login", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *GormUserRepository) Unlock(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{
		"account_locked":        false,
		"failed_login_attempts": 0,
	})
}

func (r *GormUserRepository) CountLocked(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&userRecord{}).Where("account_locked = ?", true).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormUserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormUserRepository) first(ctx context.Context, cond string, arg string) (models.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return rec.toModel(), nil
}

func (r *GormUserRepository) update(ctx context.Context, id string, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
