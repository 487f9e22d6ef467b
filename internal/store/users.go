package store

import (
	"context"
	"time"

	"it-inventory-api/internal/lifecycle"
	"it-inventory-api/internal/models"
)

const userColumns = `id, email, username, password_hash, full_name, role, is_active, created_at, updated_at, last_login_at`

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName, &u.Role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

func (r reader) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return models.User{}, notFound(err, "user %d not found", id)
	}
	return u, nil
}

func (r reader) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		ORDER BY id
		LIMIT 1`, login))
	if err != nil {
		return models.User{}, notFound(err, "user %q not found", login)
	}
	return u, nil
}

func (r reader) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r reader) NotificationRecipients(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT email FROM users
		WHERE is_active AND role IN ('admin', 'technician')
		ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// CountUsersLocked takes a lock that conflicts with itself, so concurrent
// registrations count one after the other.
func (t *txStore) CountUsersLocked(ctx context.Context) (int, error) {
	if _, err := t.q.Exec(ctx, `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return 0, mapError(err)
	}
	var n int
	err := t.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, mapError(err)
}

func (t *txStore) InsertUser(ctx context.Context, u *models.User) error {
	err := t.q.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		u.Email, u.Username, u.PasswordHash, u.FullName, u.Role, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapError(err)
}

func (t *txStore) UpdateUser(ctx context.Context, u *models.User) error {
	err := t.q.QueryRow(ctx, `
		UPDATE users SET email = $1, username = $2, password_hash = $3, full_name = $4,
			role = $5, is_active = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at`,
		u.Email, u.Username, u.PasswordHash, u.FullName, u.Role, u.IsActive, u.ID,
	).Scan(&u.UpdatedAt)
	if err != nil {
		return notFound(err, "user %d not found", u.ID)
	}
	return nil
}

func (t *txStore) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := t.q.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.NotFound("user %d not found", id)
	}
	return nil
}
