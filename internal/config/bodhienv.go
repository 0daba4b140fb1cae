package config

import (
	"os"
	"strconv"
	"strings"
)

// The BODHI_* environment variables. Any value set here overrides whatever
// the YAML config file specified, matching the settings-service precedence
// the native implementation documents: environment over file over default.
const (
	EnvHome           = "BODHI_HOME"
	EnvHost           = "BODHI_HOST"
	EnvPort           = "BODHI_PORT"
	EnvScheme         = "BODHI_SCHEME"
	EnvLogLevel       = "BODHI_LOG_LEVEL"
	EnvLogStdout      = "BODHI_LOG_STDOUT"
	EnvLogs           = "BODHI_LOGS"
	EnvEnvType        = "BODHI_ENV_TYPE"
	EnvAppType        = "BODHI_APP_TYPE"
	EnvVersion        = "BODHI_VERSION"
	EnvAuthURL        = "BODHI_AUTH_URL"
	EnvAuthRealm      = "BODHI_AUTH_REALM"
	EnvEncryptionKey  = "BODHI_ENCRYPTION_KEY"
	EnvExecLookupPath = "BODHI_EXEC_LOOKUP_PATH"
	EnvExecVariant    = "BODHI_EXEC_VARIANT"
	EnvKeepAliveSecs  = "BODHI_KEEP_ALIVE_SECS"
	EnvLlamacppArgs   = "BODHI_LLAMACPP_ARGS"

	// EnvHFHome is the HuggingFace cache root scanned for local model
	// snapshots. It intentionally has no BODHI_ prefix: it is the same
	// variable the huggingface_hub ecosystem itself reads.
	EnvHFHome = "HF_HOME"

	// publicPrefix marks a setting as safe to surface on an unauthenticated
	// settings-discovery endpoint; the true key is the suffix with this
	// prefix swapped for the plain BODHI_ one.
	publicPrefix = "BODHI_PUBLIC_"
)

const (
	// DefaultHost and DefaultPort match the desktop-app default: a loopback
	// address unreachable from outside the host unless explicitly rebound.
	DefaultHost = "localhost"
	DefaultPort = 1135

	// KeepAliveMinSecs and KeepAliveMaxSecs bound BODHI_KEEP_ALIVE_SECS; a
	// value outside this range is rejected rather than clamped.
	KeepAliveMinSecs = 300
	KeepAliveMaxSecs = 86400
)

// FromEnv layers BODHI_* environment variables over a Config already
// populated from YAML, in place. Unset variables leave the YAML (or
// built-in default) value untouched.
func FromEnv(cfg *Config) {
	if v, ok := lookupPublic(EnvHost); ok {
		cfg.Server.Addr = joinHostPort(v, addrPort(cfg.Server.Addr))
	}
	if v, ok := lookupPublic(EnvPort); ok {
		cfg.Server.Addr = joinHostPort(addrHost(cfg.Server.Addr), v)
	}
	if v, ok := lookupPublic(EnvAuthURL); ok {
		cfg.Auth.Issuer = v
	}
	if v, ok := os.LookupEnv(EnvAuthRealm); ok {
		cfg.Auth.Realm = v
	}
	if v, ok := os.LookupEnv(EnvEncryptionKey); ok {
		cfg.Auth.EncryptionSecret = v
	}
	if v, ok := lookupPublic(EnvExecLookupPath); ok {
		cfg.Inference.ExecLookupPath = v
	}
	if v, ok := lookupPublic(EnvExecVariant); ok {
		cfg.Inference.ExecVariant = v
	}
	if v, ok := lookupPublic(EnvKeepAliveSecs); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= KeepAliveMinSecs && n <= KeepAliveMaxSecs {
			cfg.Inference.KeepAliveSecs = n
		}
	}
	if v, ok := lookupPublic(EnvHome); ok && cfg.Database.DSN == "" {
		cfg.Database.DSN = strings.TrimSuffix(v, "/") + "/bodhi.db"
	}
	if v, ok := lookupPublic(EnvHFHome); ok {
		cfg.Inference.HFHome = v
	}
	if v, ok := lookupPublic(EnvLlamacppArgs); ok && v != "" {
		cfg.Inference.ExtraArgs = strings.Fields(v)
	}
}

// lookupPublic checks both the plain key and its BODHI_PUBLIC_ alias, the
// plain key taking precedence. Public aliases exist so deployments can
// expose a setting's value to unauthenticated discovery while keeping the
// operational variable itself unset.
func lookupPublic(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	suffix := strings.TrimPrefix(key, "BODHI_")
	return os.LookupEnv(publicPrefix + suffix)
}

func addrHost(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}

func addrPort(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i+1:]
	}
	return ""
}

func joinHostPort(host, port string) string {
	if host == "" {
		host = DefaultHost
	}
	if port == "" {
		port = strconv.Itoa(DefaultPort)
	}
	return host + ":" + port
}
