package pg

import (
	"context"

	gateway "github.com/bodhi-gateway/core/internal"
)

const accessRequestSelect = `SELECT id, app_client_id, user_id, status, approved, approved_role,
	 expires_at, created_at, resolved_at FROM access_requests `

// CreateAccessRequest inserts a new Draft access request.
func (s *Store) CreateAccessRequest(ctx context.Context, r *gateway.AccessRequest) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access_requests (id, app_client_id, user_id, status, approved, approved_role,
		 expires_at, created_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.AppClientID, nullStr(r.UserID), string(r.Status), nullBytes(r.Approved),
		approvedRoleValue(r.ApprovedRole), r.ExpiresAt, r.CreatedAt, r.ResolvedAt,
	)
	return err
}

// GetAccessRequest returns the access request by id.
func (s *Store) GetAccessRequest(ctx context.Context, id string) (*gateway.AccessRequest, error) {
	r := s.pool.QueryRow(ctx, accessRequestSelect+`WHERE id = $1`, id)
	return scanAccessRequest(r)
}

// ListAccessRequestsByUser returns every access request resolved for userID.
func (s *Store) ListAccessRequestsByUser(ctx context.Context, userID string) ([]*gateway.AccessRequest, error) {
	rows, err := s.pool.Query(ctx, accessRequestSelect+`WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*gateway.AccessRequest
	for rows.Next() {
		req, err := scanAccessRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// UpdateAccessRequest persists a status transition.
func (s *Store) UpdateAccessRequest(ctx context.Context, r *gateway.AccessRequest) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE access_requests SET user_id=$1, status=$2, approved=$3, approved_role=$4, resolved_at=$5 WHERE id=$6`,
		nullStr(r.UserID), string(r.Status), nullBytes(r.Approved), approvedRoleValue(r.ApprovedRole), r.ResolvedAt, r.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(tag.RowsAffected(), "access request")
}

func scanAccessRequest(r row) (*gateway.AccessRequest, error) {
	var out gateway.AccessRequest
	var userID *string
	var status string
	var approved []byte
	var approvedRole *int64

	if err := r.Scan(&out.ID, &out.AppClientID, &userID, &status, &approved, &approvedRole,
		&out.ExpiresAt, &out.CreatedAt, &out.ResolvedAt); err != nil {
		return nil, notFoundErr(err)
	}
	if userID != nil {
		out.UserID = *userID
	}
	out.Status = gateway.AccessRequestStatus(status)
	out.Approved = approved
	if approvedRole != nil {
		role := gateway.ResourceRole(*approvedRole)
		out.ApprovedRole = &role
	}
	return &out, nil
}

func approvedRoleValue(r *gateway.ResourceRole) *int64 {
	if r == nil {
		return nil
	}
	v := int64(*r)
	return &v
}
