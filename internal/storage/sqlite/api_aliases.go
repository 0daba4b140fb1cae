package sqlite

import (
	"context"
	"database/sql"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

// CreateApiAlias inserts a new remote (AliasAPI) alias.
func (s *Store) CreateApiAlias(ctx context.Context, a *gateway.Alias) error {
	models, err := marshalStrings(a.Models)
	if err != nil {
		return err
	}
	_, err = s.write.ExecContext(ctx,
		`INSERT INTO api_aliases (name, provider, base_url, prefix, forward_all_with_prefix,
		 api_key_enc, api_key_salt, api_key_nonce, models, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, nullStr(a.Provider), a.BaseURL, nullStr(a.Prefix), boolToInt(a.ForwardAllWithPrefix),
		nullBytes(a.APIKeyEnc), nullBytes(a.APIKeySalt), nullBytes(a.APIKeyNnc), models, timeToStr(time.Now()),
	)
	return err
}

// GetApiAlias returns the API alias named exactly name.
func (s *Store) GetApiAlias(ctx context.Context, name string) (*gateway.Alias, error) {
	row := s.read.QueryRowContext(ctx, apiAliasSelect+`WHERE name = ?`, name)
	return scanApiAlias(row)
}

// FindApiAliasForModel returns the first API alias whose matchable set
// (explicit/cached models, or prefix-forwarding) includes modelID. The
// matchable-set test itself runs in Go since it spans two JSON columns and
// a prefix comparison that SQLite cannot express set-wise.
func (s *Store) FindApiAliasForModel(ctx context.Context, modelID string) (*gateway.Alias, error) {
	rows, err := s.read.QueryContext(ctx, apiAliasSelect+`ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanApiAlias(rows)
		if err != nil {
			return nil, err
		}
		if a.MatchesModel(modelID) {
			return a, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, gateway.ErrAliasNotFound
}

// ListApiAliases returns every API alias.
func (s *Store) ListApiAliases(ctx context.Context) ([]*gateway.Alias, error) {
	rows, err := s.read.QueryContext(ctx, apiAliasSelect+`ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*gateway.Alias
	for rows.Next() {
		a, err := scanApiAlias(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateApiAlias updates an existing API alias, including (when non-nil)
// its encrypted credential triple and cached upstream model list.
func (s *Store) UpdateApiAlias(ctx context.Context, a *gateway.Alias) error {
	models, err := marshalStrings(a.Models)
	if err != nil {
		return err
	}
	result, err := s.write.ExecContext(ctx,
		`UPDATE api_aliases SET provider=?, base_url=?, prefix=?, forward_all_with_prefix=?,
		 api_key_enc=?, api_key_salt=?, api_key_nonce=?, models=? WHERE name=?`,
		nullStr(a.Provider), a.BaseURL, nullStr(a.Prefix), boolToInt(a.ForwardAllWithPrefix),
		nullBytes(a.APIKeyEnc), nullBytes(a.APIKeySalt), nullBytes(a.APIKeyNnc), models, a.Name,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "api alias")
}

// DeleteApiAlias removes an API alias by name.
func (s *Store) DeleteApiAlias(ctx context.Context, name string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM api_aliases WHERE name=?`, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "api alias")
}

// UpdateModelsCache writes back a freshly-fetched upstream model list for
// an API alias, used by the API-model cache's background refresh.
func (s *Store) UpdateModelsCache(ctx context.Context, name string, models []string, fetchedAt time.Time) error {
	cache, err := marshalStrings(models)
	if err != nil {
		return err
	}
	_, err = s.write.ExecContext(ctx,
		`UPDATE api_aliases SET models_cache=?, cache_fetched_at=? WHERE name=?`,
		cache, timeToStr(fetchedAt), name,
	)
	return err
}

const apiAliasSelect = `SELECT name, provider, base_url, prefix, forward_all_with_prefix,
	 api_key_enc, api_key_salt, api_key_nonce, models, models_cache FROM api_aliases `

func scanApiAlias(sc scanner) (*gateway.Alias, error) {
	var a gateway.Alias
	var provider, prefix sql.NullString
	var forwardAll int
	var keyEnc, keySalt, keyNonce []byte
	var models, modelsCache sql.NullString

	if err := sc.Scan(&a.Name, &provider, &a.BaseURL, &prefix, &forwardAll,
		&keyEnc, &keySalt, &keyNonce, &models, &modelsCache); err != nil {
		return nil, notFoundErr(err)
	}
	a.Source = gateway.AliasAPI
	a.Provider = provider.String
	a.Prefix = prefix.String
	a.ForwardAllWithPrefix = forwardAll != 0
	a.APIKeyEnc = keyEnc
	a.APIKeySalt = keySalt
	a.APIKeyNnc = keyNonce

	explicit, err := unmarshalStrings(models)
	if err != nil {
		return nil, err
	}
	cached, err := unmarshalStrings(modelsCache)
	if err != nil {
		return nil, err
	}
	a.Models = mergeModelLists(explicit, cached)
	return &a, nil
}

// mergeModelLists unions explicit and cached model lists without
// duplicates, preserving explicit-first ordering.
func mergeModelLists(explicit, cached []string) []string {
	seen := make(map[string]bool, len(explicit)+len(cached))
	out := make([]string, 0, len(explicit)+len(cached))
	for _, m := range explicit {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for _, m := range cached {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
