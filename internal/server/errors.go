package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	gateway "github.com/bodhi-gateway/core/internal"
)

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorResponse(msg string) apiError {
	var e apiError
	e.Error.Message = msg
	e.Error.Type = "invalid_request_error"
	return e
}

// errorStatus maps a domain sentinel error to the HTTP status the external
// interface table pins it to.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, gateway.ErrUnauthorized),
		errors.Is(err, gateway.ErrSessionExpired),
		errors.Is(err, gateway.ErrTokenExpired),
		errors.Is(err, gateway.ErrTokenMalformed),
		errors.Is(err, gateway.ErrExchangeFailed):
		return http.StatusUnauthorized
	case errors.Is(err, gateway.ErrForbidden),
		errors.Is(err, gateway.ErrAccessDenied),
		errors.Is(err, gateway.ErrToolNotAvailable):
		return http.StatusForbidden
	case errors.Is(err, gateway.ErrNotFound), errors.Is(err, gateway.ErrAliasNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrAccessExpired):
		return http.StatusGone
	case errors.Is(err, gateway.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrContextBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrProcessExited), errors.Is(err, gateway.ErrUpstreamError):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// jsonCT is a pre-allocated header value slice. Direct map assignment avoids
// the []string{v} alloc that Header.Set creates on every call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		return
	}
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.LogAttrs(r.Context(), slog.LevelError, "request error",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		writeJSON(w, status, errorResponse(http.StatusText(status)))
		return
	}
	writeJSON(w, status, errorResponse(err.Error()))
}
