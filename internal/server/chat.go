package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	gateway "github.com/bodhi-gateway/core/internal"
)

// handleChatCompletion resolves the request's model to an alias and
// forwards it to either the shared inference context (local aliases) or an
// upstream API (remote aliases), streaming the response body back
// unmodified (the remote forwarder translates upstream error statuses).
func (s *server) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, true)
}

// handleEmbeddings shares the same routing/forwarding path as chat
// completions -- both local and remote forwarders map the request path to
// the right upstream endpoint themselves. Embeddings requests have no
// messages/stream envelope, so that validation is skipped.
func (s *server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	s.forward(w, r, false)
}

func (s *server) forward(w http.ResponseWriter, r *http.Request, validateChatFields bool) {
	var probe struct {
		Model    string          `json:"model"`
		Messages json.RawMessage `json:"messages"`
		Stream   json.RawMessage `json:"stream"`
	}
	body, err := peekBody(r, &probe)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}
	r.Body = body

	if probe.Model == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("model is required"))
		return
	}
	if validateChatFields {
		if msg := validateChatEnvelope(probe.Messages, probe.Stream); msg != "" {
			writeJSON(w, http.StatusBadRequest, errorResponse(msg))
			return
		}
	}

	alias, err := s.deps.Router.Route(r.Context(), probe.Model)
	if err != nil {
		if s.deps.Metrics != nil {
			s.deps.Metrics.RouteCacheMisses.Inc()
		}
		writeError(w, r, err)
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.RouteCacheHits.Inc()
	}

	var fwdErr error
	switch alias.Source {
	case gateway.AliasUser, gateway.AliasModel:
		fwdErr = s.deps.Local.Forward(r.Context(), w, r, alias)
	case gateway.AliasAPI:
		fwdErr = s.deps.Remote.Forward(r.Context(), w, r, alias)
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse("alias has no recognized source"))
		return
	}
	if fwdErr != nil {
		writeError(w, r, fwdErr)
	}
}

// handleListModels returns every known alias name across all three sources.
func (s *server) handleListModels(w http.ResponseWriter, r *http.Request) {
	type modelEntry struct {
		ID     string `json:"id"`
		Object string `json:"object"`
		Source string `json:"source"`
	}

	var out []modelEntry
	for _, source := range []gateway.AliasSource{gateway.AliasUser, gateway.AliasModel} {
		aliases, err := s.deps.Router.ListLocal(r.Context(), source)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, a := range aliases {
			out = append(out, modelEntry{ID: a.Name, Object: "model", Source: string(a.Source)})
		}
	}
	apiAliases, err := s.deps.Router.ListRemote(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, a := range apiAliases {
		models := a.Models
		if s.deps.APIModelCache != nil {
			if live, err := s.deps.APIModelCache.GetModels(r.Context(), *a); err == nil {
				models = live
			}
		}
		for _, m := range models {
			out = append(out, modelEntry{ID: m, Object: "model", Source: string(gateway.AliasAPI)})
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Object string       `json:"object"`
		Data   []modelEntry `json:"data"`
	}{Object: "list", Data: out})
}

// validateChatEnvelope checks the pre-routing shape of a chat-completion
// request: messages must be present and a JSON array, stream (if present)
// must be a JSON boolean. Returns a non-empty message describing the first
// violation found, or "" if the envelope is well-formed.
func validateChatEnvelope(messages, stream json.RawMessage) string {
	if len(messages) == 0 {
		return "messages is required"
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(messages, &arr); err != nil {
		return "messages must be an array"
	}
	if len(stream) > 0 {
		var b bool
		if err := json.Unmarshal(stream, &b); err != nil {
			return "stream must be a boolean"
		}
	}
	return ""
}

// peekBody decodes v from r.Body and returns a fresh io.ReadCloser replaying
// the same bytes, so both the probe decode and the forwarder (which needs
// the raw body) see the full payload.
func peekBody(r *http.Request, v any) (io.ReadCloser, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

const maxRequestBody = 4 << 20
