package users

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Touch(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (id, display_name, is_guest, created_at, last_seen_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (id) DO UPDATE SET
  display_name = COALESCE(EXCLUDED.display_name, users.display_name),
  last_seen_at = now()
RETURNING id, display_name, is_guest, created_at, last_seen_at`
	return scanUser(r.DB.QueryRowContext(ctx, query, user.ID, nullableString(user.DisplayName), user.IsGuest))
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, display_name, is_guest, created_at, last_seen_at
FROM users
WHERE id = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	var displayName sql.NullString
	if err := row.Scan(&user.ID, &displayName, &user.IsGuest, &user.CreatedAt, &user.LastSeenAt); err != nil {
		return User{}, err
	}
	if displayName.Valid {
		user.DisplayName = displayName.String
	}
	return user, nil
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
