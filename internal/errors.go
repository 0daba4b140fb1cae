package gateway

import "errors"

// Sentinel errors for the gateway domain.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrBadRequest       = errors.New("bad request")
	ErrAliasNotFound    = errors.New("alias not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrExchangeFailed   = errors.New("token exchange failed")
	ErrAccessDenied     = errors.New("access request denied")
	ErrAccessExpired    = errors.New("access request expired")
	ErrToolNotAvailable = errors.New("tool not available")
	ErrContextBusy      = errors.New("inference context busy")
	ErrProcessExited    = errors.New("inference process exited")
	ErrUpstreamError    = errors.New("upstream provider error")
)
