package sqlite

import (
	"context"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

// CreateSession inserts a new browser session row.
func (s *Store) CreateSession(ctx context.Context, rec *gateway.SessionRecord) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO sessions (id, data, user_id, expiry_date) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Data, rec.UserID, timeToStr(rec.ExpiryDate),
	)
	return err
}

// GetSession returns the session row by id.
func (s *Store) GetSession(ctx context.Context, id string) (*gateway.SessionRecord, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, data, user_id, expiry_date FROM sessions WHERE id = ?`, id)

	var rec gateway.SessionRecord
	var expiry string
	if err := row.Scan(&rec.ID, &rec.Data, &rec.UserID, &expiry); err != nil {
		return nil, notFoundErr(err)
	}
	t, err := parseTime(expiry)
	if err != nil {
		return nil, err
	}
	rec.ExpiryDate = t
	return &rec, nil
}

// DeleteSession removes a session by id.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.write.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	return err
}

// DeleteSessionsByUser removes every session belonging to userID (e.g. on
// password reset or account disable) and reports how many rows were
// removed.
func (s *Store) DeleteSessionsByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.write.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeExpiredSessions removes every session whose expiry_date is before
// now, for the session-purge background worker.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.write.ExecContext(ctx, `DELETE FROM sessions WHERE expiry_date < ?`, timeToStr(now))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountSessionsForUser reports how many session rows userID currently owns.
func (s *Store) CountSessionsForUser(ctx context.Context, userID string) (int64, error) {
	row := s.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id=?`, userID)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetSessionIDsForUser returns every session id belonging to userID.
func (s *Store) GetSessionIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.read.QueryContext(ctx, `SELECT id FROM sessions WHERE user_id=?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearAllSessions removes every session row, regardless of owner.
func (s *Store) ClearAllSessions(ctx context.Context) (int64, error) {
	result, err := s.write.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
