package domain

import "time"

// User is the login bookkeeping row kept per Telegram account.
type User struct {
	ID          int64     `db:"id" json:"id"`
	TgID        int64     `db:"tg_id" json:"tg_id"`
	Username    string    `db:"username" json:"username"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LoginCount  int64     `db:"login_count" json:"login_count"`
	LastLoginAt time.Time `db:"last_login_at" json:"last_login_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
