// Package storage defines persistence interfaces for the gateway.
package storage

import (
	"context"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

// AliasStore manages user- and model-alias persistence (AliasUser and
// AliasModel rows). AliasAPI rows live in ApiAliasStore since they carry
// encrypted credential material and a separate model-list cache.
type AliasStore interface {
	CreateAlias(ctx context.Context, a *gateway.Alias) error
	GetAlias(ctx context.Context, name string) (*gateway.Alias, error)
	ListAliases(ctx context.Context, source gateway.AliasSource) ([]*gateway.Alias, error)
	UpdateAlias(ctx context.Context, a *gateway.Alias) error
	DeleteAlias(ctx context.Context, name string) error
}

// ApiAliasStore manages remote (AliasAPI) alias persistence, including
// encrypted API key material.
type ApiAliasStore interface {
	CreateApiAlias(ctx context.Context, a *gateway.Alias) error
	GetApiAlias(ctx context.Context, name string) (*gateway.Alias, error)
	// FindApiAliasForModel returns the first API alias whose matchable set
	// (explicit/cached models, or prefix-forwarding) includes modelID.
	FindApiAliasForModel(ctx context.Context, modelID string) (*gateway.Alias, error)
	ListApiAliases(ctx context.Context) ([]*gateway.Alias, error)
	UpdateApiAlias(ctx context.Context, a *gateway.Alias) error
	DeleteApiAlias(ctx context.Context, name string) error
}

// SessionStore manages browser session persistence, indexed by user so a
// single operation (e.g. password reset) can purge every session belonging
// to one account.
type SessionStore interface {
	CreateSession(ctx context.Context, s *gateway.SessionRecord) error
	GetSession(ctx context.Context, id string) (*gateway.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUser(ctx context.Context, userID string) (int64, error)
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	// CountSessionsForUser reports how many session rows userID currently
	// owns.
	CountSessionsForUser(ctx context.Context, userID string) (int64, error)
	// GetSessionIDsForUser returns every session id belonging to userID.
	GetSessionIDsForUser(ctx context.Context, userID string) ([]string, error)
	// ClearAllSessions removes every session row, regardless of owner, and
	// reports how many rows were removed.
	ClearAllSessions(ctx context.Context) (int64, error)
}

// AccessRequestStore manages the access-request consent lifecycle.
type AccessRequestStore interface {
	CreateAccessRequest(ctx context.Context, r *gateway.AccessRequest) error
	GetAccessRequest(ctx context.Context, id string) (*gateway.AccessRequest, error)
	ListAccessRequestsByUser(ctx context.Context, userID string) ([]*gateway.AccessRequest, error)
	UpdateAccessRequest(ctx context.Context, r *gateway.AccessRequest) error
}

// Store combines all storage interfaces. Both the embedded (sqlite) and
// networked (pg) dialect packages implement this in full.
type Store interface {
	AliasStore
	ApiAliasStore
	SessionStore
	AccessRequestStore
	Close() error
}
