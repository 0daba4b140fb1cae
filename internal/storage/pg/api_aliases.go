package pg

import (
	"context"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

const apiAliasSelect = `SELECT name, provider, base_url, prefix, forward_all_with_prefix,
	 api_key_enc, api_key_salt, api_key_nonce, models, models_cache FROM api_aliases `

// CreateApiAlias inserts a new remote (AliasAPI) alias.
func (s *Store) CreateApiAlias(ctx context.Context, a *gateway.Alias) error {
	models, err := marshalStrings(a.Models)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO api_aliases (name, provider, base_url, prefix, forward_all_with_prefix,
		 api_key_enc, api_key_salt, api_key_nonce, models, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.Name, nullStr(a.Provider), a.BaseURL, nullStr(a.Prefix), a.ForwardAllWithPrefix,
		nullBytes(a.APIKeyEnc), nullBytes(a.APIKeySalt), nullBytes(a.APIKeyNnc), models, time.Now(),
	)
	return err
}

// GetApiAlias returns the API alias named exactly name.
func (s *Store) GetApiAlias(ctx context.Context, name string) (*gateway.Alias, error) {
	r := s.pool.QueryRow(ctx, apiAliasSelect+`WHERE name = $1`, name)
	return scanApiAlias(r)
}

// FindApiAliasForModel returns the first API alias whose matchable set
// includes modelID.
func (s *Store) FindApiAliasForModel(ctx context.Context, modelID string) (*gateway.Alias, error) {
	rows, err := s.pool.Query(ctx, apiAliasSelect+`ORDER BY name`)
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
	rows, err := s.pool.Query(ctx, apiAliasSelect+`ORDER BY name`)
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

// UpdateApiAlias updates an existing API alias.
func (s *Store) UpdateApiAlias(ctx context.Context, a *gateway.Alias) error {
	models, err := marshalStrings(a.Models)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_aliases SET provider=$1, base_url=$2, prefix=$3, forward_all_with_prefix=$4,
		 api_key_enc=$5, api_key_salt=$6, api_key_nonce=$7, models=$8 WHERE name=$9`,
		nullStr(a.Provider), a.BaseURL, nullStr(a.Prefix), a.ForwardAllWithPrefix,
		nullBytes(a.APIKeyEnc), nullBytes(a.APIKeySalt), nullBytes(a.APIKeyNnc), models, a.Name,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(tag.RowsAffected(), "api alias")
}

// DeleteApiAlias removes an API alias by name.
func (s *Store) DeleteApiAlias(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_aliases WHERE name=$1`, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(tag.RowsAffected(), "api alias")
}

// UpdateModelsCache writes back a freshly-fetched upstream model list.
func (s *Store) UpdateModelsCache(ctx context.Context, name string, models []string, fetchedAt time.Time) error {
	cache, err := marshalStrings(models)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE api_aliases SET models_cache=$1, cache_fetched_at=$2 WHERE name=$3`,
		cache, fetchedAt, name,
	)
	return err
}

func scanApiAlias(r row) (*gateway.Alias, error) {
	var a gateway.Alias
	var provider, prefix *string
	var forwardAll bool
	var keyEnc, keySalt, keyNonce []byte
	var models, modelsCache *string

	if err := r.Scan(&a.Name, &provider, &a.BaseURL, &prefix, &forwardAll,
		&keyEnc, &keySalt, &keyNonce, &models, &modelsCache); err != nil {
		return nil, notFoundErr(err)
	}
	a.Source = gateway.AliasAPI
	if provider != nil {
		a.Provider = *provider
	}
	if prefix != nil {
		a.Prefix = *prefix
	}
	a.ForwardAllWithPrefix = forwardAll
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
