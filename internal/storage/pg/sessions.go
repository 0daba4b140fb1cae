package pg

import (
	"context"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

// CreateSession inserts a new browser session row.
func (s *Store) CreateSession(ctx context.Context, rec *gateway.SessionRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, data, user_id, expiry_date) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.Data, rec.UserID, rec.ExpiryDate,
	)
	return err
}

// GetSession returns the session row by id.
func (s *Store) GetSession(ctx context.Context, id string) (*gateway.SessionRecord, error) {
	r := s.pool.QueryRow(ctx, `SELECT id, data, user_id, expiry_date FROM sessions WHERE id = $1`, id)
	var rec gateway.SessionRecord
	if err := r.Scan(&rec.ID, &rec.Data, &rec.UserID, &rec.ExpiryDate); err != nil {
		return nil, notFoundErr(err)
	}
	return &rec, nil
}

// DeleteSession removes a session by id.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	return err
}

// DeleteSessionsByUser removes every session belonging to userID.
func (s *Store) DeleteSessionsByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeExpiredSessions removes every session whose expiry_date is before now.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expiry_date < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountSessionsForUser reports how many session rows userID currently owns.
func (s *Store) CountSessionsForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id=$1`, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetSessionIDsForUser returns every session id belonging to userID.
func (s *Store) GetSessionIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM sessions WHERE user_id=$1`, userID)
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
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
