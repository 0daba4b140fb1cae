// Package testutil provides configurable test fakes for gateway interfaces.
package testutil

import (
	"context"
	"net/http"

	gateway "github.com/bodhi-gateway/core/internal"
)

// FakeForwarder is a configurable gateway.LocalForwarder / gateway.RemoteForwarder
// for testing router and server wiring without a real inference process or
// upstream API.
type FakeForwarder struct {
	ForwardFn func(ctx context.Context, w http.ResponseWriter, r *http.Request, alias gateway.Alias) error
}

// Forward delegates to ForwardFn or writes a minimal 200 response.
func (f *FakeForwarder) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request, alias gateway.Alias) error {
	if f.ForwardFn != nil {
		return f.ForwardFn(ctx, w, r, alias)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte(`{"id":"fake","object":"chat.completion","model":"` + alias.Name + `"}`))
	return err
}
