package sqlite

import (
	"context"
	"database/sql"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

// CreateAlias inserts a new user or model alias.
func (s *Store) CreateAlias(ctx context.Context, a *gateway.Alias) error {
	extraArgs, err := marshalStrings(a.ExtraArgs)
	if err != nil {
		return err
	}
	_, err = s.write.ExecContext(ctx,
		`INSERT INTO aliases (name, source, repo, filename, model_path, extra_args, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, string(a.Source), nullStr(a.Repo), nullStr(a.Filename), nullStr(a.ModelPath),
		extraArgs, timeToStr(time.Now()),
	)
	return err
}

// GetAlias returns the alias named exactly name, whichever of the two
// local kinds (user or model) it is -- a name uniquely identifies one row.
func (s *Store) GetAlias(ctx context.Context, name string) (*gateway.Alias, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT name, source, repo, filename, model_path, extra_args
		 FROM aliases WHERE name = ?`, name)
	return scanAlias(row)
}

// ListAliases returns all aliases of the given source kind.
func (s *Store) ListAliases(ctx context.Context, source gateway.AliasSource) ([]*gateway.Alias, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT name, source, repo, filename, model_path, extra_args
		 FROM aliases WHERE source = ? ORDER BY name`, string(source))
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
	result, err := s.write.ExecContext(ctx,
		`UPDATE aliases SET repo=?, filename=?, model_path=?, extra_args=? WHERE name=?`,
		nullStr(a.Repo), nullStr(a.Filename), nullStr(a.ModelPath), extraArgs, a.Name,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "alias")
}

// DeleteAlias removes an alias by name.
func (s *Store) DeleteAlias(ctx context.Context, name string) error {
	result, err := s.write.ExecContext(ctx, `DELETE FROM aliases WHERE name=?`, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(result, "alias")
}

func scanAlias(sc scanner) (*gateway.Alias, error) {
	var a gateway.Alias
	var source string
	var repo, filename, modelPath, extraArgs sql.NullString

	if err := sc.Scan(&a.Name, &source, &repo, &filename, &modelPath, &extraArgs); err != nil {
		return nil, notFoundErr(err)
	}
	a.Source = gateway.AliasSource(source)
	a.Repo = repo.String
	a.Filename = filename.String
	a.ModelPath = modelPath.String

	args, err := unmarshalStrings(extraArgs)
	if err != nil {
		return nil, err
	}
	a.ExtraArgs = args
	return &a, nil
}
