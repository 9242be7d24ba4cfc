package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionRecord is a persisted HTTP session.
// Data is an opaque JSON document owned by the session package.
type SessionRecord struct {
	ID        string
	UserID    int64 // 0 when anonymous
	Data      []byte
	ExpiresAt time.Time
}

// SaveSession inserts or replaces a session row.
func (s *Store) SaveSession(ctx context.Context, rec SessionRecord) error {
	var userID sql.NullInt64
	if rec.UserID != 0 {
		userID = sql.NullInt64{Int64: rec.UserID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, data, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			data = excluded.data,
			expires_at = excluded.expires_at
	`, rec.ID, userID, string(rec.Data), toMillis(rec.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the session with id if it has not expired at now.
// Unknown and expired sessions are both NOT_FOUND.
func (s *Store) LoadSession(ctx context.Context, id string, now time.Time) (SessionRecord, error) {
	var (
		rec       SessionRecord
		userID    sql.NullInt64
		data      string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, data, expires_at FROM sessions
		WHERE id = ? AND expires_at > ?
	`, id, toMillis(now)).Scan(&rec.ID, &userID, &data, &expiresAt)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("load session: %w", notFound(err, "Session"))
	}
	rec.UserID = userID.Int64
	rec.Data = []byte(data)
	rec.ExpiresAt = fromMillis(expiresAt)
	return rec, nil
}

// DeleteSession removes a session. Deleting an unknown id is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions expired at now and returns how many.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: rows affected: %w", err)
	}
	return n, nil
}
