package access

import (
	"context"
	"sync"

	"github.com/bodhi-gateway/core/internal/config"
)

// ToolRegistry is the config-backed ToolService. Enablement is global per
// tool id rather than per-user -- nothing else in the domain model carries
// a per-user tool grant, so "enabled for user_id" reduces to "enabled, and
// if it requires an API key, one is configured."
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]config.ToolEntry
}

// NewToolRegistry builds a ToolRegistry from the configured tool entries.
func NewToolRegistry(entries []config.ToolEntry) *ToolRegistry {
	tools := make(map[string]config.ToolEntry, len(entries))
	for _, e := range entries {
		tools[e.ID] = e
	}
	return &ToolRegistry{tools: tools}
}

// IsToolAvailableForUser implements ToolService.
func (r *ToolRegistry) IsToolAvailableForUser(_ context.Context, _, toolID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[toolID]
	if !ok || !t.Enabled {
		return false, nil
	}
	if t.RequiresAPIKey && t.APIKey == "" {
		return false, nil
	}
	return true, nil
}

// Set installs or replaces a tool's configuration at runtime, used by the
// admin API to enable/disable a tool without a process restart.
func (r *ToolRegistry) Set(entry config.ToolEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[entry.ID] = entry
}
