package testutil

import (
	"context"
	"sync"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

// FakeStore is an in-memory implementation of storage.Store for testing.
type FakeStore struct {
	mu             sync.RWMutex
	aliases        map[string]*gateway.Alias
	apiAliases     map[string]*gateway.Alias
	sessions       map[string]*gateway.SessionRecord
	accessRequests map[string]*gateway.AccessRequest
}

// NewFakeStore returns a FakeStore with empty collections.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		aliases:        make(map[string]*gateway.Alias),
		apiAliases:     make(map[string]*gateway.Alias),
		sessions:       make(map[string]*gateway.SessionRecord),
		accessRequests: make(map[string]*gateway.AccessRequest),
	}
}

// --- AliasStore ---

func (s *FakeStore) CreateAlias(_ context.Context, a *gateway.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[a.Name] = a
	return nil
}

func (s *FakeStore) GetAlias(_ context.Context, name string) (*gateway.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.aliases[name]
	if !ok {
		return nil, gateway.ErrAliasNotFound
	}
	return a, nil
}

func (s *FakeStore) ListAliases(_ context.Context, source gateway.AliasSource) ([]*gateway.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*gateway.Alias
	for _, a := range s.aliases {
		if a.Source == source {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *FakeStore) UpdateAlias(_ context.Context, a *gateway.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[a.Name]; !ok {
		return gateway.ErrAliasNotFound
	}
	s.aliases[a.Name] = a
	return nil
}

func (s *FakeStore) DeleteAlias(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[name]; !ok {
		return gateway.ErrAliasNotFound
	}
	delete(s.aliases, name)
	return nil
}

// --- ApiAliasStore ---

func (s *FakeStore) CreateApiAlias(_ context.Context, a *gateway.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiAliases[a.Name] = a
	return nil
}

func (s *FakeStore) GetApiAlias(_ context.Context, name string) (*gateway.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apiAliases[name]
	if !ok {
		return nil, gateway.ErrAliasNotFound
	}
	return a, nil
}

func (s *FakeStore) FindApiAliasForModel(_ context.Context, modelID string) (*gateway.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.apiAliases {
		if a.MatchesModel(modelID) {
			return a, nil
		}
	}
	return nil, gateway.ErrAliasNotFound
}

func (s *FakeStore) ListApiAliases(context.Context) ([]*gateway.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*gateway.Alias, 0, len(s.apiAliases))
	for _, a := range s.apiAliases {
		out = append(out, a)
	}
	return out, nil
}

func (s *FakeStore) UpdateApiAlias(_ context.Context, a *gateway.Alias) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apiAliases[a.Name]; !ok {
		return gateway.ErrAliasNotFound
	}
	s.apiAliases[a.Name] = a
	return nil
}

func (s *FakeStore) DeleteApiAlias(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apiAliases[name]; !ok {
		return gateway.ErrAliasNotFound
	}
	delete(s.apiAliases, name)
	return nil
}

// --- SessionStore ---

func (s *FakeStore) CreateSession(_ context.Context, rec *gateway.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

func (s *FakeStore) GetSession(_ context.Context, id string) (*gateway.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return rec, nil
}

func (s *FakeStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *FakeStore) DeleteSessionsByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.sessions {
		if rec.UserID == userID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *FakeStore) PurgeExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.sessions {
		if rec.ExpiryDate.Before(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *FakeStore) CountSessionsForUser(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, rec := range s.sessions {
		if rec.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *FakeStore) GetSessionIDsForUser(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, rec := range s.sessions {
		if rec.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *FakeStore) ClearAllSessions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.sessions))
	s.sessions = make(map[string]*gateway.SessionRecord)
	return n, nil
}

// --- AccessRequestStore ---

func (s *FakeStore) CreateAccessRequest(_ context.Context, r *gateway.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessRequests[r.ID] = r
	return nil
}

func (s *FakeStore) GetAccessRequest(_ context.Context, id string) (*gateway.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.accessRequests[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return r, nil
}

func (s *FakeStore) ListAccessRequestsByUser(_ context.Context, userID string) ([]*gateway.AccessRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*gateway.AccessRequest
	for _, r := range s.accessRequests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *FakeStore) UpdateAccessRequest(_ context.Context, r *gateway.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accessRequests[r.ID]; !ok {
		return gateway.ErrNotFound
	}
	s.accessRequests[r.ID] = r
	return nil
}

// Close is a no-op for the in-memory fake.
func (s *FakeStore) Close() error { return nil }
