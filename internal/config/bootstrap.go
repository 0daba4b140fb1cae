// Package config provides configuration loading and database bootstrapping.
package config

import (
	"context"
	"log/slog"

	gateway "github.com/bodhi-gateway/core/internal"
	"github.com/bodhi-gateway/core/internal/cryptoutil"
	"github.com/bodhi-gateway/core/internal/storage"
)

// Bootstrap seeds the alias store from the config file's aliases/api_aliases
// entries on first run. Existing aliases with the same name are left
// untouched -- bootstrap never overwrites state a previous run or the admin
// API has already created.
func Bootstrap(ctx context.Context, cfg *Config, store storage.Store) error {
	for _, e := range cfg.Aliases {
		if existing, _ := store.GetAlias(ctx, e.Name); existing != nil {
			continue
		}
		a := &gateway.Alias{
			Name:      e.Name,
			Source:    gateway.AliasUser,
			Repo:      e.Repo,
			Filename:  e.Filename,
			ModelPath: e.ModelPath,
			ExtraArgs: e.ExtraArgs,
		}
		if err := store.CreateAlias(ctx, a); err != nil {
			return err
		}
		slog.Info("bootstrapped alias", "name", a.Name)
	}

	for _, e := range cfg.APIAliases {
		if existing, _ := store.GetApiAlias(ctx, e.Name); existing != nil {
			continue
		}
		a := &gateway.Alias{
			Name:                 e.Name,
			Source:               gateway.AliasAPI,
			Provider:             e.Provider,
			BaseURL:              e.BaseURL,
			Prefix:               e.Prefix,
			ForwardAllWithPrefix: e.ForwardAllWithPrefix,
			Models:               e.Models,
		}
		if e.APIKey != "" {
			enc, salt, nonce, err := cryptoutil.Encrypt(cfg.Auth.EncryptionSecret, e.APIKey)
			if err != nil {
				return err
			}
			a.APIKeyEnc, a.APIKeySalt, a.APIKeyNnc = enc, salt, nonce
		}
		if err := store.CreateApiAlias(ctx, a); err != nil {
			return err
		}
		slog.Info("bootstrapped api alias", "name", a.Name, "provider", a.Provider)
	}

	return nil
}
