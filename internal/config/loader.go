package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every config key when read from the environment,
	// e.g. model.backend -> EMBEDSVC_MODEL_BACKEND
	EnvPrefix = "EMBEDSVC"
	// ConfigFileExt is the config file extension
	ConfigFileExt = "yaml"
	// DotEnvFile is loaded from the working directory when present
	DotEnvFile = ".env"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a new config loader. configPath may be empty, in which case
// only defaults and the environment are consulted.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		v:          viper.New(),
	}
}

// ConfigPath returns the config file path, or "" when none was given
func (l *Loader) ConfigPath() string {
	return l.configPath
}

// Load resolves defaults, the optional config file and the environment, in
// increasing order of precedence.
func (l *Loader) Load() (*Config, error) {
	// Existing environment variables always win over .env entries.
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	// Create a fresh viper instance for each load to avoid stale state
	l.v = viper.New()
	setDefaults(l.v, Default())

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	if err := bindLegacyEnv(l.v); err != nil {
		return nil, err
	}

	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err != nil {
			return nil, fmt.Errorf("config file not found at %s: %w", l.configPath, err)
		}
		l.v.SetConfigFile(l.configPath)
		l.v.SetConfigType(ConfigFileExt)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadAndValidate loads the configuration and rejects it if validation fails
func (l *Loader) LoadAndValidate() (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	if err := ValidateOrError(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv also applies to Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.shutdown_timeout_ms", d.Server.ShutdownTimeoutMs)

	v.SetDefault("model.backend", d.Model.Backend)
	v.SetDefault("model.base_url", d.Model.BaseURL)
	v.SetDefault("model.token", d.Model.Token)
	v.SetDefault("model.timeout_ms", d.Model.TimeoutMs)
	v.SetDefault("model.load_retries", d.Model.LoadRetries)

	v.SetDefault("cache.root", d.Cache.Root)

	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)
	v.SetDefault("embedding.persistent", d.Embedding.Persistent)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// bindLegacyEnv maps the well-known unprefixed variables onto config keys.
// The unprefixed name is listed first and takes precedence.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"cache.root":  {"EMBED_CACHE_ROOT", EnvPrefix + "_CACHE_ROOT"},
		"model.token": {"HF_TOKEN", EnvPrefix + "_MODEL_TOKEN"},
		"server.port": {"PORT", EnvPrefix + "_SERVER_PORT"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}
