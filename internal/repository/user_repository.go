package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nextgenrdp/api/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const pgUniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, full_name, password_hash, failed_login_attempts, account_locked,
	is_admin, email_verified, last_login, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, email, full_name, password_hash, failed_login_attempts, account_locked,
			is_admin, email_verified, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.FailedLoginAttempts,
		user.AccountLocked,
		user.IsAdmin,
		user.EmailVerified,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, attempts int, locked bool) error {
	const query = `
		UPDATE users
		SET failed_login_attempts = $2,
		    account_locked = account_locked OR $3,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, attempts, locked)
}

func (r *UserRepository) RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users SET failed_login_attempts = 0, last_login = $2, updated_at = NOW() WHERE id = $1
	`
	return r.exec(ctx, query, id, at)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	return r.exec(ctx, query, id, at)
}

func (r *UserRepository) Unlock(ctx context.Context, id string) error {
	const query = `
		UPDATE users SET account_locked = FALSE, failed_login_attempts = 0, updated_at = NOW() WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *UserRepository) CountLocked(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE account_locked`
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.FailedLoginAttempts,
		&user.AccountLocked,
		&user.IsAdmin,
		&user.EmailVerified,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
