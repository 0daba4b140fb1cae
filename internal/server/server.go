// Package server implements the HTTP transport layer for the gateway.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	gateway "github.com/bodhi-gateway/core/internal"
	"github.com/bodhi-gateway/core/internal/access"
	"github.com/bodhi-gateway/core/internal/accessrequest"
	"github.com/bodhi-gateway/core/internal/apimodelcache"
	"github.com/bodhi-gateway/core/internal/modelrouter"
	"github.com/bodhi-gateway/core/internal/storage"
	"github.com/bodhi-gateway/core/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Auth           gateway.Authenticator
	Router         *modelrouter.Router
	Local          gateway.LocalForwarder
	Remote         gateway.RemoteForwarder
	Store          storage.Store  // nil = no admin CRUD (for tests)
	AccessRequests *accessrequest.Service
	APIModelCache  *apimodelcache.Cache // nil = /v1/models falls back to each alias's configured Models list
	ToolService    access.ToolService   // nil = tool-invocation routes are not mounted
	Metrics        *telemetry.Metrics // nil = no Prometheus metrics
	MetricsHandler http.Handler       // nil = no /metrics endpoint
	Tracer         trace.Tracer       // nil = no distributed tracing
	ReadyCheck     ReadyChecker       // nil = always ready (for tests)
	// EncryptionSecret derives the per-alias AES-GCM key used to encrypt API
	// keys at rest when an API alias is created or updated via the admin API.
	EncryptionSecret string
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	r.Use(s.securityHeaders)
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	if deps.Tracer != nil {
		r.Use(tracingMiddleware(deps.Tracer))
	}

	// System endpoints (no auth).
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Client-facing OpenAI-compatible API.
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.requireRole(gateway.RoleUser))
		r.Post("/v1/chat/completions", s.handleChatCompletion)
		r.Post("/v1/embeddings", s.handleEmbeddings)
		r.Get("/v1/models", s.handleListModels)
	})

	// /app/... setup & login-callback surface.
	s.mountAppRoutes(r)

	// Admin API (session-role or approved-access-request gated).
	if deps.Store != nil {
		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(s.authenticate)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(gateway.RoleManager))
				r.Get("/aliases", s.handleListAliases)
				r.Post("/aliases", s.handleCreateAlias)
				r.Get("/aliases/{name}", s.handleGetAlias)
				r.Put("/aliases/{name}", s.handleUpdateAlias)
				r.Delete("/aliases/{name}", s.handleDeleteAlias)

				r.Get("/api-aliases", s.handleListApiAliases)
				r.Post("/api-aliases", s.handleCreateApiAlias)
				r.Get("/api-aliases/{name}", s.handleGetApiAlias)
				r.Put("/api-aliases/{name}", s.handleUpdateApiAlias)
				r.Delete("/api-aliases/{name}", s.handleDeleteApiAlias)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAccessRequest(access.ToolsetValidator{}))
				r.Get("/toolsets/{id}", s.handleGetToolset)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAccessRequest(access.MCPValidator{}))
				r.Get("/mcps/{id}", s.handleGetMCP)
			})

			if deps.AccessRequests != nil {
				r.Group(func(r chi.Router) {
					r.Use(s.requireRole(gateway.RoleUser))
					r.Post("/access-requests/{id}/approve", s.handleApproveAccessRequest)
					r.Post("/access-requests/{id}/deny", s.handleDenyAccessRequest)
					r.Get("/access-requests/{id}", s.handleGetAccessRequest)
				})
			}

			if deps.ToolService != nil {
				r.Group(func(r chi.Router) {
					r.Use(s.requireRole(gateway.RoleUser))
					r.Use(s.requireToolAvailable(deps.ToolService))
					r.Post("/tools/{tool_id}/execute", s.handleInvokeTool)
				})
			}
		})
	}

	return r
}

type server struct {
	deps Deps
}
