package sqlite

import (
	"context"
	"database/sql"

	gateway "github.com/bodhi-gateway/core/internal"
)

const accessRequestSelect = `SELECT id, app_client_id, user_id, status, approved, approved_role,
	 expires_at, created_at, resolved_at FROM access_requests `

// CreateAccessRequest inserts a new Draft access request.
func (s *Store) CreateAccessRequest(ctx context.Context, r *gateway.AccessRequest) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO access_requests (id, app_client_id, user_id, status, approved, approved_role,
		 expires_at, created_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AppClientID, nullStr(r.UserID), string(r.Status), nullBytes(r.Approved),
		approvedRoleValue(r.ApprovedRole), timePtrToStr(r.ExpiresAt), timeToStr(r.CreatedAt), timePtrToStr(r.ResolvedAt),
	)
	return err
}

// GetAccessRequest returns the access request by id.
func (s *Store) GetAccessRequest(ctx context.Context, id string) (*gateway.AccessRequest, error) {
	row := s.read.QueryRowContext(ctx, accessRequestSelect+`WHERE id = ?`, id)
	return scanAccessRequest(row)
}

// ListAccessRequestsByUser returns every access request resolved for userID.
func (s *Store) ListAccessRequestsByUser(ctx context.Context, userID string) ([]*gateway.AccessRequest, error) {
	rows, err := s.read.QueryContext(ctx, accessRequestSelect+`WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*gateway.AccessRequest
	for rows.Next() {
		r, err := scanAccessRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateAccessRequest persists a status transition (and any fields that
// change alongside it: UserID, Approved, ApprovedRole, ResolvedAt).
func (s *Store) UpdateAccessRequest(ctx context.Context, r *gateway.AccessRequest) error {
	result, err := s.write.ExecContext(ctx,
		`UPDATE access_requests SET user_id=?, status=?, approved=?, approved_role=?, resolved_at=? WHERE id=?`,
		nullStr(r.UserID), string(r.Status), nullBytes(r.Approved), approvedRoleValue(r.ApprovedRole), timePtrToStr(r.ResolvedAt), r.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "access request")
}

func scanAccessRequest(sc scanner) (*gateway.AccessRequest, error) {
	var r gateway.AccessRequest
	var userID sql.NullString
	var status string
	var approved []byte
	var approvedRole sql.NullInt64
	var expiresAt, resolvedAt sql.NullString
	var createdAt string

	if err := sc.Scan(&r.ID, &r.AppClientID, &userID, &status, &approved, &approvedRole,
		&expiresAt, &createdAt, &resolvedAt); err != nil {
		return nil, notFoundErr(err)
	}
	r.UserID = userID.String
	r.Status = gateway.AccessRequestStatus(status)
	r.Approved = approved

	if approvedRole.Valid {
		role := gateway.ResourceRole(approvedRole.Int64)
		r.ApprovedRole = &role
	}

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = created

	exp, err := parseTimePtr(expiresAt)
	if err != nil {
		return nil, err
	}
	r.ExpiresAt = exp

	res, err := parseTimePtr(resolvedAt)
	if err != nil {
		return nil, err
	}
	r.ResolvedAt = res

	return &r, nil
}

func approvedRoleValue(r *gateway.ResourceRole) sql.NullInt64 {
	if r == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*r), Valid: true}
}
