package testutil

import (
	"context"
	"net/http"

	gateway "github.com/bodhi-gateway/core/internal"
)

// FakeAuth always authenticates successfully as an admin-scoped session.
type FakeAuth struct{}

// Authenticate returns a test session AuthContext with admin scope.
func (FakeAuth) Authenticate(context.Context, *http.Request) (*gateway.AuthContext, error) {
	return &gateway.AuthContext{
		Kind:      gateway.AuthSession,
		SessionID: "test-session",
		UserID:    "test-user",
		UserScope: gateway.ScopeUserAdmin,
	}, nil
}

// RejectAuth always rejects authentication.
type RejectAuth struct{}

// Authenticate always returns ErrUnauthorized.
func (RejectAuth) Authenticate(context.Context, *http.Request) (*gateway.AuthContext, error) {
	return nil, gateway.ErrUnauthorized
}
