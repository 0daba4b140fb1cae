// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Inference InferenceConfig `yaml:"inference"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Aliases   []AliasEntry    `yaml:"aliases"`
	APIAliases []APIAliasEntry `yaml:"api_aliases"`
	Tools     []ToolEntry     `yaml:"tools"`
}

// ToolEntry configures one invocable tool (e.g. a built-in web-search or
// code-execution tool) for the tool-availability access check: a tool is
// only available to a caller if it is both Enabled and, when RequiresAPIKey
// is set, has a non-empty APIKey.
type ToolEntry struct {
	ID             string `yaml:"id"`
	Enabled        bool   `yaml:"enabled"`
	RequiresAPIKey bool   `yaml:"requires_api_key"`
	APIKey         string `yaml:"api_key"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds session/alias/access-request store settings.
type DatabaseConfig struct {
	// Dialect selects the storage backend: "sqlite" (embedded, default) or
	// "pg" (networked, for multi-node deployments).
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"` // sqlite file path / ":memory:", or a postgres connection string
}

// AuthConfig holds the Auth Context Resolver / Token Exchange settings.
type AuthConfig struct {
	Issuer           string `yaml:"issuer"`            // authorization-server OIDC issuer URL
	Realm            string `yaml:"realm"`             // authorization-server realm, for realm-scoped issuers
	ClientID         string `yaml:"client_id"`         // this gateway's own OAuth client (azp)
	ClientSecret     string `yaml:"client_secret"`
	EncryptionSecret string `yaml:"encryption_secret"` // derives API-key-at-rest AES-GCM keys
}

// InferenceConfig holds the Shared Inference Context's launch and lifecycle
// settings.
type InferenceConfig struct {
	ExecLookupPath string `yaml:"exec_lookup_path"` // dir containing the native inference binary
	ExecVariant    string `yaml:"exec_variant"`      // e.g. "cpu", "cuda", "metal"
	// KeepAliveSecs, when non-zero, enables the idle-unload worker: the
	// shared inference context is stopped after this many seconds without a
	// request. Valid range is 300-86400s; 0 disables idle unload.
	KeepAliveSecs int      `yaml:"keep_alive_secs"`
	HFHome        string   `yaml:"hf_home"`    // model cache root scanned for AliasModel entries
	ExtraArgs     []string `yaml:"extra_args"` // appended to every native inference invocation
}

// AliasEntry seeds a local (AliasUser) alias at bootstrap.
type AliasEntry struct {
	Name      string   `yaml:"name"`
	Repo      string   `yaml:"repo"`
	Filename  string   `yaml:"filename"`
	ModelPath string   `yaml:"model_path"`
	ExtraArgs []string `yaml:"extra_args"`
}

// APIAliasEntry seeds a remote (AliasAPI) alias at bootstrap. APIKey is
// plaintext in the YAML source (typically itself a ${VAR} expansion) and is
// encrypted before being written to the store.
type APIAliasEntry struct {
	Name                 string   `yaml:"name"`
	Provider             string   `yaml:"provider"`
	BaseURL              string   `yaml:"base_url"`
	Prefix               string   `yaml:"prefix"`
	ForwardAllWithPrefix bool     `yaml:"forward_all_with_prefix"`
	APIKey               string   `yaml:"api_key"`
	Models               []string `yaml:"models"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables,
// then layers the BODHI_* environment table on top via FromEnv.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Dialect: "sqlite",
			DSN:     "bodhi.db",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	FromEnv(cfg)
	return cfg, nil
}
