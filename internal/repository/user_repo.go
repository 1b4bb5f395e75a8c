package repository

import (
	"context"

	"boostclics/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// RecordLogin upserts the account by tg_id and bumps its login counter.
// u is filled with the stored row.
func (r *UserRepository) RecordLogin(ctx context.Context, u *domain.User) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO telegram_users (tg_id, username, first_name)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		 ON CONFLICT (tg_id) DO UPDATE
		 SET username = EXCLUDED.username,
		     first_name = EXCLUDED.first_name,
		     login_count = telegram_users.login_count + 1,
		     last_login_at = NOW()
		 RETURNING id, login_count, last_login_at, created_at`,
		u.TgID,
		u.Username,
		u.FirstName,
	).Scan(&u.ID, &u.LoginCount, &u.LastLoginAt, &u.CreatedAt)
}
