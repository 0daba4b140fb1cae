package pg

import (
	"context"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

// CreateAlias inserts a new user or model alias.
func (s *Store) CreateAlias(ctx context.Context, a *gateway.Alias) error {
	extraArgs, err := marshalStrings(a.ExtraArgs)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO aliases (name, source, repo, filename, model_path, extra_args, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.Name, string(a.Source), nullStr(a.Repo), nullStr(a.Filename), nullStr(a.ModelPath),
		extraArgs, time.Now(),
	)
	return err
}

// GetAlias returns the alias named exactly name.
func (s *Store) GetAlias(ctx context.Context, name string) (*gateway.Alias, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT name, source, repo, filename, model_path, extra_args FROM aliases WHERE name = $1`, name)
	return scanAlias(row)
}

// ListAliases returns all aliases of the given source kind.
func (s *Store) ListAliases(ctx context.Context, source gateway.AliasSource) ([]*gateway.Alias, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, source, repo, filename, model_path, extra_args FROM aliases WHERE source = $1 ORDER BY name`,
		string(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*gateway.Alias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAlias updates an existing alias's launch parameters.
func (s *Store) UpdateAlias(ctx context.Context, a *gateway.Alias) error {
	extraArgs, err := marshalStrings(a.ExtraArgs)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE aliases SET repo=$1, filename=$2, model_path=$3, extra_args=$4 WHERE name=$5`,
		nullStr(a.Repo), nullStr(a.Filename), nullStr(a.ModelPath), extraArgs, a.Name,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(tag.RowsAffected(), "alias")
}

// DeleteAlias removes an alias by name.
func (s *Store) DeleteAlias(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM aliases WHERE name=$1`, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(tag.RowsAffected(), "alias")
}

// row is satisfied by both pgx.Row and pgx.Rows.
type row interface {
	Scan(dest ...any) error
}

func scanAlias(r row) (*gateway.Alias, error) {
	var a gateway.Alias
	var source string
	var repo, filename, modelPath, extraArgs *string

	if err := r.Scan(&a.Name, &source, &repo, &filename, &modelPath, &extraArgs); err != nil {
		return nil, notFoundErr(err)
	}
	a.Source = gateway.AliasSource(source)
	if repo != nil {
		a.Repo = *repo
	}
	if filename != nil {
		a.Filename = *filename
	}
	if modelPath != nil {
		a.ModelPath = *modelPath
	}

	args, err := unmarshalStrings(extraArgs)
	if err != nil {
		return nil, err
	}
	a.ExtraArgs = args
	return &a, nil
}
