package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mushroomlog/mushroomlog/internal/models"
	"github.com/mushroomlog/mushroomlog/internal/repositories"
)

type UserRepository struct {
	DB *sql.DB
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.CreatedAt = time.Now()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users(id, name, email, password_hash, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, timestamp(u.CreatedAt), timestamp(u.CreatedAt))
	return err
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var (
		user      models.User
		createdAt string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, COALESCE(totp_secret, ''), totp_enabled, created_at
		 FROM users WHERE `+column+` = ?`, value,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.TOTPSecret, &user.TOTPEnabled, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	user.CreatedAt = parseTimestamp(createdAt)
	return &user, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepository) SetTOTPSecret(ctx context.Context, id, secret string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		nullString(secret), timestamp(time.Now()), id)
	return err
}

func (r *UserRepository) SetTOTPEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET totp_enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, timestamp(time.Now()), id)
	return err
}
