package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bodhi-gateway/core/internal/accessrequest"
)

func TestConsentRegistrationClient_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scope":"scope_user_manager","access_request_scope":"ar-1"}`))
	}))
	t.Cleanup(srv.Close)

	c := &ConsentRegistrationClient{ConsentURL: srv.URL, HTTPClient: srv.Client()}
	if err := c.RegisterConsent(context.Background(), "user-token", "app-1", "ar-1", "approved toolset X"); err != nil {
		t.Fatal(err)
	}
}

func TestConsentRegistrationClient_Conflict(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	t.Cleanup(srv.Close)

	c := &ConsentRegistrationClient{ConsentURL: srv.URL, HTTPClient: srv.Client()}
	err := c.RegisterConsent(context.Background(), "user-token", "app-1", "ar-1", "")
	if err != accessrequest.ErrConsentConflict {
		t.Errorf("err = %v, want ErrConsentConflict", err)
	}
}

func TestConsentRegistrationClient_Unauthorized(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := &ConsentRegistrationClient{ConsentURL: srv.URL, HTTPClient: srv.Client()}
	if err := c.RegisterConsent(context.Background(), "bad", "app-1", "ar-1", ""); err == nil {
		t.Fatal("expected error")
	}
}
