package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/storefront/internal/domain"
)

const userColumns = `id, name, email, password_hash, created_at`

// CreateUser inserts a user and returns it with its assigned ID.
// A duplicate email yields a CONFLICT domain error.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string, now time.Time) (domain.User, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, name, email, passwordHash, toMillis(now))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.Conflict("E-mail already exists. Please log in or use a different e-mail.", err)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: last insert id: %w", err)
	}

	return domain.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    fromMillis(toMillis(now)),
	}, nil
}

// UserByID returns the user with the given ID.
func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("user by id: %w", notFound(err, "User"))
	}
	return u, nil
}

// UserByEmail returns the user registered with email.
func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("user by email: %w", notFound(err, "User"))
	}
	return u, nil
}

// SetResetToken stores a password-reset token valid until expiresAt.
// Any earlier token for the user is replaced.
func (s *Store) SetResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET reset_token = ?, reset_token_expires = ?
		WHERE id = ?
	`, token, toMillis(expiresAt), userID)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("set reset token: %w", domain.NotFound("User"))
	}
	return nil
}

// UserByResetToken returns the user holding token, provided it has not
// expired at now. Unknown and expired tokens are both NOT_FOUND.
func (s *Store) UserByResetToken(ctx context.Context, token string, now time.Time) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE reset_token = ? AND reset_token_expires > ?
	`, token, toMillis(now))
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("user by reset token: %w", notFound(err, "Reset token"))
	}
	return u, nil
}

// UpdatePassword replaces the user's password hash and clears any reset token.
func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expires = NULL
		WHERE id = ?
	`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update password: %w", domain.NotFound("User"))
	}
	return nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u         domain.User
		createdAt int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

var _ rowScanner = (*sql.Row)(nil)
