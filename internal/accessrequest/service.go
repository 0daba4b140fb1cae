// Package accessrequest implements the third-party app consent lifecycle:
// Draft -> {Approved, Denied, Failed} or implicit Expired on read, all
// terminal once reached.
package accessrequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	gateway "github.com/bodhi-gateway/core/internal"
	"github.com/bodhi-gateway/core/internal/storage"
)

const draftTTL = 10 * time.Minute

// ErrAlreadyProcessed reports a mutation attempted on a non-Draft request.
var ErrAlreadyProcessed = errors.New("accessrequest: already processed")

// ConsentRegistrar registers an approved access request with the
// authorization server so it can issue exchange tokens scoped to it. A
// registration conflict (e.g. a UUID collision on the authorization
// server side) transitions the request to Failed rather than erroring the
// caller.
type ConsentRegistrar interface {
	RegisterConsent(ctx context.Context, userToken, appClientID, accessRequestID, description string) error
}

// ErrConsentConflict should be returned by a ConsentRegistrar implementation
// to signal a registration collision, distinct from any other failure.
var ErrConsentConflict = errors.New("accessrequest: consent registration conflict")

// Service implements the access-request consent lifecycle.
type Service struct {
	store     storage.AccessRequestStore
	registrar ConsentRegistrar
}

// New returns a Service backed by store and registrar.
func New(store storage.AccessRequestStore, registrar ConsentRegistrar) *Service {
	return &Service{store: store, registrar: registrar}
}

// approvalPayload is the JSON shape persisted to AccessRequest.Approved.
type approvalPayload struct {
	Toolsets json.RawMessage `json:"toolsets"`
	MCPs     json.RawMessage `json:"mcps"`
}

// CreateDraft creates a new Draft access request for appClientID, expiring
// in 10 minutes unless acted on sooner. requestedRole is not stored: the
// draft carries no role until Approve sets ApprovedRole.
func (s *Service) CreateDraft(ctx context.Context, appClientID string, requestedRole gateway.ResourceRole) (*gateway.AccessRequest, error) {
	now := time.Now()
	req := &gateway.AccessRequest{
		ID:          uuid.Must(uuid.NewV7()).String(),
		AppClientID: appClientID,
		Status:      gateway.AccessRequestDraft,
		ExpiresAt:   ptrTime(now.Add(draftTTL)),
		CreatedAt:   now,
	}
	if err := s.store.CreateAccessRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create draft access request: %w", err)
	}
	return req, nil
}

// GetRequest returns the request by id, resolving an implicit Draft->Expired
// transition on read if its expiry has passed. The expiry observation is
// persisted so subsequent reads see Expired directly.
func (s *Service) GetRequest(ctx context.Context, id string) (*gateway.AccessRequest, error) {
	req, err := s.store.GetAccessRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == gateway.AccessRequestDraft && req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		req.Status = gateway.AccessRequestExpired
		if err := s.store.UpdateAccessRequest(ctx, req); err != nil {
			return nil, fmt.Errorf("persist expiry: %w", err)
		}
	}
	return req, nil
}

// Approve transitions a Draft request to Approved, recording the
// per-entity approvals and the granted role. Approval requires successful
// consent registration with the authorization server; a registration
// conflict transitions the request to Failed instead of erroring.
func (s *Service) Approve(ctx context.Context, id, userID, userToken string, toolsetApprovals, mcpApprovals json.RawMessage, approvedRole gateway.ResourceRole) (*gateway.AccessRequest, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireDraft(req); err != nil {
		return nil, err
	}

	if s.registrar != nil {
		description := describeApprovals(toolsetApprovals, mcpApprovals)
		if err := s.registrar.RegisterConsent(ctx, userToken, req.AppClientID, id, description); err != nil {
			if errors.Is(err, ErrConsentConflict) {
				req.Status = gateway.AccessRequestFailed
				req.ResolvedAt = ptrTime(time.Now())
				if uerr := s.store.UpdateAccessRequest(ctx, req); uerr != nil {
					return nil, fmt.Errorf("persist failed status: %w", uerr)
				}
				return req, nil
			}
			return nil, fmt.Errorf("register consent: %w", err)
		}
	}

	approved, err := json.Marshal(approvalPayload{Toolsets: toolsetApprovals, MCPs: mcpApprovals})
	if err != nil {
		return nil, fmt.Errorf("marshal approvals: %w", err)
	}

	req.Status = gateway.AccessRequestApproved
	req.UserID = userID
	req.Approved = approved
	req.ApprovedRole = &approvedRole
	req.ResolvedAt = ptrTime(time.Now())
	if err := s.store.UpdateAccessRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("persist approval: %w", err)
	}
	return req, nil
}

// Deny transitions a Draft request to Denied.
func (s *Service) Deny(ctx context.Context, id, userID string) (*gateway.AccessRequest, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireDraft(req); err != nil {
		return nil, err
	}
	req.Status = gateway.AccessRequestDenied
	req.UserID = userID
	req.ResolvedAt = ptrTime(time.Now())
	if err := s.store.UpdateAccessRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("persist denial: %w", err)
	}
	return req, nil
}

func requireDraft(req *gateway.AccessRequest) error {
	switch req.Status {
	case gateway.AccessRequestDraft:
		return nil
	case gateway.AccessRequestExpired:
		return gateway.ErrAccessExpired
	default:
		return ErrAlreadyProcessed
	}
}

func describeApprovals(toolsets, mcps json.RawMessage) string {
	if len(toolsets) <= 2 && len(mcps) <= 2 { // "[]" marshals to 2 bytes
		return "Access approved"
	}
	return "Access approved for requested toolsets and MCP servers"
}

func ptrTime(t time.Time) *time.Time { return &t }
