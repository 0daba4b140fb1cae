// Package access implements the request-time authorization checks layered
// on top of a resolved AuthContext: minimum-role checks and per-entity
// access-request consent checks.
package access

import (
	"context"
	"fmt"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
	"github.com/bodhi-gateway/core/internal/storage"
)

// ErrEntityNotApproved reports that an ExternalApp caller's access request
// does not cover the entity named in the request path.
var ErrEntityNotApproved = fmt.Errorf("%w: entity not approved", gateway.ErrAccessDenied)

// RequireRole checks that auth's effective role meets min. Anonymous
// callers (no effective role) are always rejected.
func RequireRole(auth *gateway.AuthContext, min gateway.ResourceRole) error {
	if auth == nil {
		return gateway.ErrUnauthorized
	}
	role, ok := auth.EffectiveRole()
	if !ok {
		return gateway.ErrUnauthorized
	}
	if role < min {
		return gateway.ErrForbidden
	}
	return nil
}

// EntityValidator extracts an entity id from a request path and decides
// whether an access request's approved-resources payload covers it. Each
// entity kind (toolset, MCP server, ...) supplies its own validator.
type EntityValidator interface {
	ExtractEntityID(path string) (string, error)
	IsApproved(approvedJSON []byte, entityID string) (bool, error)
}

// CheckAccessRequest enforces the per-entity consent check for an
// ExternalApp caller. Session callers (first-party browser UI) skip this
// check entirely, since they act on their own behalf rather than through a
// delegated access request.
func CheckAccessRequest(ctx context.Context, store storage.AccessRequestStore, auth *gateway.AuthContext, path string, validator EntityValidator) error {
	if auth == nil {
		return gateway.ErrUnauthorized
	}
	if auth.Kind == gateway.AuthSession {
		return nil
	}
	if auth.Kind != gateway.AuthExternalApp {
		return gateway.ErrUnauthorized
	}

	entityID, err := validator.ExtractEntityID(path)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrNotFound, err)
	}

	if auth.AccessRequestID == "" {
		return fmt.Errorf("%w: no delegated access request", gateway.ErrAccessDenied)
	}
	req, err := store.GetAccessRequest(ctx, auth.AccessRequestID)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrAccessDenied, err)
	}
	if req.Status != gateway.AccessRequestApproved {
		return fmt.Errorf("%w: access request status %q", gateway.ErrAccessDenied, req.Status)
	}
	if req.AppClientID != auth.AppClientID {
		return fmt.Errorf("%w: app client mismatch", gateway.ErrAccessDenied)
	}
	if req.UserID != auth.UserID {
		return fmt.Errorf("%w: user mismatch", gateway.ErrAccessDenied)
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("%w: approval expired at %s", gateway.ErrAccessExpired, req.ExpiresAt)
	}

	approved, err := validator.IsApproved(req.Approved, entityID)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrAccessDenied, err)
	}
	if !approved {
		return fmt.Errorf("%w: %s", ErrEntityNotApproved, entityID)
	}
	return nil
}
