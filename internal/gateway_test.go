package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestHashToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "typical token", raw: "eyJhbGciOiJSUzI1NiJ9.abc123"},
		{name: "long token", raw: "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := HashToken(tt.raw)
			h := sha256.Sum256([]byte(tt.raw))
			want := hex.EncodeToString(h[:])[:12]
			if got != want {
				t.Errorf("HashToken(%q) = %q, want %q", tt.raw, got, want)
			}
			if len(got) != 12 {
				t.Errorf("HashToken len = %d, want 12", len(got))
			}
		})
	}

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		if HashToken("tok") != HashToken("tok") {
			t.Error("HashToken is not deterministic")
		}
	})

	t.Run("distinct inputs produce distinct hashes", func(t *testing.T) {
		t.Parallel()
		if HashToken("tok1") == HashToken("tok2") {
			t.Error("distinct inputs produced same hash")
		}
	})
}

func TestServerArgsEquivalent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b ServerArgs
		want bool
	}{
		{
			name: "same alias, same everything",
			a:    ServerArgs{AliasName: "llama3", ModelPath: "/a", ExtraArgs: []string{"-c", "2048"}},
			b:    ServerArgs{AliasName: "llama3", ModelPath: "/a", ExtraArgs: []string{"-c", "2048"}},
			want: true,
		},
		{
			name: "same alias, different model path still equivalent",
			a:    ServerArgs{AliasName: "llama3", ModelPath: "/a"},
			b:    ServerArgs{AliasName: "llama3", ModelPath: "/b"},
			want: true,
		},
		{
			name: "different alias",
			a:    ServerArgs{AliasName: "llama3"},
			b:    ServerArgs{AliasName: "mistral"},
			want: false,
		},
		{
			name: "both empty",
			a:    ServerArgs{},
			b:    ServerArgs{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.a.Equivalent(tt.b); got != tt.want {
				t.Errorf("Equivalent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserScopeFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		want  UserScope
		found bool
	}{
		{in: "scope_user_admin", want: ScopeUserAdmin, found: true},
		{in: "scope_user_manager", want: ScopeUserManager, found: true},
		{in: "scope_user_power_user", want: ScopeUserPowerUser, found: true},
		{in: "scope_user_user", want: ScopeUserUser, found: true},
		{in: "bogus", found: false},
		{in: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := UserScopeFromString(tt.in)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHighestUserScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field string
		want  UserScope
		found bool
	}{
		{name: "single scope", field: "scope_user_user", want: ScopeUserUser, found: true},
		{
			name:  "multiple scopes picks highest",
			field: "openid scope_user_user scope_user_admin email",
			want:  ScopeUserAdmin,
			found: true,
		},
		{name: "no recognized scope", field: "openid email", found: false},
		{name: "empty field", field: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := HighestUserScope(tt.field)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserScopeHasAccessTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		have UserScope
		min  UserScope
		want bool
	}{
		{have: ScopeUserAdmin, min: ScopeUserUser, want: true},
		{have: ScopeUserUser, min: ScopeUserAdmin, want: false},
		{have: ScopeUserManager, min: ScopeUserManager, want: true},
		{have: ScopeUserPowerUser, min: ScopeUserManager, want: false},
	}

	for _, tt := range tests {
		if got := tt.have.HasAccessTo(tt.min); got != tt.want {
			t.Errorf("%v.HasAccessTo(%v) = %v, want %v", tt.have, tt.min, got, tt.want)
		}
	}
}

func TestAuthContextEffectiveRole(t *testing.T) {
	t.Parallel()

	t.Run("session maps user scope to resource role", func(t *testing.T) {
		t.Parallel()
		a := &AuthContext{Kind: AuthSession, UserScope: ScopeUserManager}
		role, ok := a.EffectiveRole()
		if !ok || role != RoleManager {
			t.Errorf("EffectiveRole() = (%v, %v), want (RoleManager, true)", role, ok)
		}
	})

	t.Run("api token maps token scope to resource role", func(t *testing.T) {
		t.Parallel()
		a := &AuthContext{Kind: AuthAPIToken, TokenScope: TokenScopeAdmin}
		role, ok := a.EffectiveRole()
		if !ok || role != RoleAdmin {
			t.Errorf("EffectiveRole() = (%v, %v), want (RoleAdmin, true)", role, ok)
		}
	})

	t.Run("anonymous has no role", func(t *testing.T) {
		t.Parallel()
		a := &AuthContext{Kind: AuthAnonymous}
		if _, ok := a.EffectiveRole(); ok {
			t.Error("expected no effective role for anonymous context")
		}
	})
}

func TestContextWithRequestID_RequestIDFromContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
	}{
		{name: "non-empty", id: "req-abc-123"},
		{name: "empty string", id: ""},
		{name: "uuid-like", id: "018f1b2c-3d4e-7a5b-8c9d-0e1f2a3b4c5d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := ContextWithRequestID(context.Background(), tt.id)
			got := RequestIDFromContext(ctx)
			if got != tt.id {
				t.Errorf("RequestIDFromContext = %q, want %q", got, tt.id)
			}
		})
	}

	t.Run("missing from context", func(t *testing.T) {
		t.Parallel()
		got := RequestIDFromContext(context.Background())
		if got != "" {
			t.Errorf("RequestIDFromContext on bare ctx = %q, want empty", got)
		}
	})
}

func TestContextWithAuth_AuthFromContext(t *testing.T) {
	t.Parallel()

	t.Run("set on bare context", func(t *testing.T) {
		t.Parallel()
		auth := &AuthContext{Kind: AuthSession, UserID: "user-1"}
		ctx := ContextWithAuth(context.Background(), auth)
		got := AuthFromContext(ctx)
		if got != auth {
			t.Errorf("AuthFromContext = %v, want %v", got, auth)
		}
	})

	t.Run("mutates existing meta", func(t *testing.T) {
		t.Parallel()
		ctx := ContextWithRequestID(context.Background(), "req-xyz")
		auth := &AuthContext{Kind: AuthAPIToken, AppClientID: "app-1"}
		ctx2 := ContextWithAuth(ctx, auth)
		if ctx2 != ctx {
			t.Error("ContextWithAuth should return same ctx when meta already present")
		}
		if got := AuthFromContext(ctx2); got != auth {
			t.Errorf("AuthFromContext = %v, want %v", got, auth)
		}
		if got := RequestIDFromContext(ctx2); got != "req-xyz" {
			t.Errorf("RequestIDFromContext after ContextWithAuth = %q, want req-xyz", got)
		}
	})

	t.Run("nil auth", func(t *testing.T) {
		t.Parallel()
		ctx := ContextWithAuth(context.Background(), nil)
		if got := AuthFromContext(ctx); got != nil {
			t.Errorf("expected nil auth, got %v", got)
		}
	})

	t.Run("missing from context", func(t *testing.T) {
		t.Parallel()
		if got := AuthFromContext(context.Background()); got != nil {
			t.Errorf("AuthFromContext on bare ctx = %v, want nil", got)
		}
	})
}

func TestMetaFromContext(t *testing.T) {
	t.Parallel()

	t.Run("nil on bare context", func(t *testing.T) {
		t.Parallel()
		if m := metaFromContext(context.Background()); m != nil {
			t.Errorf("expected nil, got %v", m)
		}
	})

	t.Run("returns stored meta", func(t *testing.T) {
		t.Parallel()
		ctx := ContextWithRequestID(context.Background(), "r1")
		m := metaFromContext(ctx)
		if m == nil {
			t.Fatal("expected non-nil meta")
		}
		if m.RequestID != "r1" {
			t.Errorf("RequestID = %q, want r1", m.RequestID)
		}
	})

	t.Run("mutation visible through same ctx", func(t *testing.T) {
		t.Parallel()
		ctx := ContextWithRequestID(context.Background(), "r2")
		m := metaFromContext(ctx)
		auth := &AuthContext{Kind: AuthSession, UserID: "mutated"}
		m.Auth = auth
		if got := AuthFromContext(ctx); got != auth {
			t.Errorf("mutated auth not visible: got %v", got)
		}
	})
}
