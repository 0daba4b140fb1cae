package access

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gateway "github.com/bodhi-gateway/core/internal"
)

// ToolService reports whether a tool is configured and enabled for a given
// user, the question the tool-availability access policy consults before
// letting a tool-invocation route proceed.
type ToolService interface {
	IsToolAvailableForUser(ctx context.Context, userID, toolID string) (bool, error)
}

// CheckToolAvailability enforces the tool-availability policy for
// tool-invocation routes: it applies to every auth kind alike, unlike
// CheckAccessRequest, and asks svc about the caller's UserID, since a tool's
// enablement is a property of the user account, not of a delegated grant.
// A context with no UserID is rejected with ErrUnauthorized; the resolver
// sets UserID only for session callers, so API-token and external-app
// callers are rejected here.
func CheckToolAvailability(ctx context.Context, svc ToolService, auth *gateway.AuthContext, toolID string) error {
	if auth == nil || auth.UserID == "" {
		return gateway.ErrUnauthorized
	}
	available, err := svc.IsToolAvailableForUser(ctx, auth.UserID, toolID)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrToolNotAvailable, err)
	}
	if !available {
		return fmt.Errorf("%w: %s", gateway.ErrToolNotAvailable, toolID)
	}
	return nil
}

// approvalStatus mirrors the upstream "approved"/"denied"/"pending" per-
// entity approval vocabulary.
type approvalStatus string

const approvalApproved approvalStatus = "approved"

// approvedResources is the decoded shape of an AccessRequest's Approved
// JSON payload: one list per entity kind that can be delegated.
type approvedResources struct {
	Toolsets []entityApproval `json:"toolsets"`
	MCPs     []entityApproval `json:"mcps"`
}

type entityApproval struct {
	Status   approvalStatus `json:"status"`
	Instance *entityRef     `json:"instance,omitempty"`
}

type entityRef struct {
	ID string `json:"id"`
}

// ToolsetValidator checks access-request approval for a toolset entity,
// addressed by a "/toolsets/{id}" path segment.
type ToolsetValidator struct{}

func (ToolsetValidator) ExtractEntityID(path string) (string, error) {
	return extractIDFromPath(path, "toolsets")
}

func (ToolsetValidator) IsApproved(approvedJSON []byte, entityID string) (bool, error) {
	approvals, err := decodeApprovedResources(approvedJSON)
	if err != nil {
		return false, err
	}
	return anyApproved(approvals.Toolsets, entityID), nil
}

// MCPValidator checks access-request approval for an MCP server entity,
// addressed by a "/mcps/{id}" path segment.
type MCPValidator struct{}

func (MCPValidator) ExtractEntityID(path string) (string, error) {
	return extractIDFromPath(path, "mcps")
}

func (MCPValidator) IsApproved(approvedJSON []byte, entityID string) (bool, error) {
	approvals, err := decodeApprovedResources(approvedJSON)
	if err != nil {
		return false, err
	}
	return anyApproved(approvals.MCPs, entityID), nil
}

// extractIDFromPath returns the path segment immediately following the
// first occurrence of resourcePrefix, e.g. extractIDFromPath("/app/toolsets/abc/run", "toolsets") == "abc".
func extractIDFromPath(path, resourcePrefix string) (string, error) {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == resourcePrefix && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], nil
		}
	}
	return "", fmt.Errorf("no %s segment in path %q", resourcePrefix, path)
}

func decodeApprovedResources(approvedJSON []byte) (approvedResources, error) {
	if len(approvedJSON) == 0 {
		return approvedResources{}, nil
	}
	var out approvedResources
	if err := json.Unmarshal(approvedJSON, &out); err != nil {
		return approvedResources{}, fmt.Errorf("decode approved resources: %w", err)
	}
	return out, nil
}

func anyApproved(entries []entityApproval, entityID string) bool {
	for _, e := range entries {
		if e.Status == approvalApproved && e.Instance != nil && e.Instance.ID == entityID {
			return true
		}
	}
	return false
}
