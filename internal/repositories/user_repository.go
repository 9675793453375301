package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mushroomlog/mushroomlog/internal/models"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO users(id, name, email, password_hash)
         VALUES($1, $2, $3, $4)
         RETURNING created_at`,
		u.ID, u.Name, u.Email, u.PasswordHash,
	).Scan(&u.CreatedAt)
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, email, password_hash, COALESCE(totp_secret, ''), totp_enabled, created_at
         FROM users WHERE `+column+`=$1`, value)

	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.TOTPSecret, &user.TOTPEnabled, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

// SetTOTPSecret stores a pending secret; 2FA stays disabled until verified
func (r *UserRepository) SetTOTPSecret(ctx context.Context, id, secret string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_secret = NULLIF($2, ''), updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id, secret)
	return err
}

func (r *UserRepository) SetTOTPEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_enabled = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id, enabled)
	return err
}
