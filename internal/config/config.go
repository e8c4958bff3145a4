package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config represents the complete embedsvc configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server" mapstructure:"server"`
	Model     ModelConfig     `yaml:"model" json:"model" mapstructure:"model"`
	Cache     CacheConfig     `yaml:"cache" json:"cache" mapstructure:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding" mapstructure:"embedding"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string `yaml:"host" json:"host" mapstructure:"host"`
	Port              int    `yaml:"port" json:"port" mapstructure:"port"`
	LogLevel          string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms" json:"shutdown_timeout_ms" mapstructure:"shutdown_timeout_ms"`
}

// ModelConfig selects and configures the embedding backend.
// The model identifier itself is fixed and not part of the configuration.
type ModelConfig struct {
	Backend     string `yaml:"backend" json:"backend" mapstructure:"backend"`
	BaseURL     string `yaml:"base_url" json:"base_url" mapstructure:"base_url"`
	Token       string `yaml:"token" json:"-" mapstructure:"token"`
	TimeoutMs   int    `yaml:"timeout_ms" json:"timeout_ms" mapstructure:"timeout_ms"`
	LoadRetries int    `yaml:"load_retries" json:"load_retries" mapstructure:"load_retries"`
}

// CacheConfig contains cache directory redirection settings
type CacheConfig struct {
	Root string `yaml:"root" json:"root" mapstructure:"root"`
}

// EmbeddingConfig contains embedding cache settings
type EmbeddingConfig struct {
	CacheSize  int  `yaml:"cache_size" json:"cache_size" mapstructure:"cache_size"`
	Persistent bool `yaml:"persistent" json:"persistent" mapstructure:"persistent"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ShutdownTimeout returns the graceful shutdown timeout as time.Duration
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMs) * time.Millisecond
}

// Level maps LogLevel onto a slog level. Unknown values log at info.
func (s ServerConfig) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Timeout returns the backend request timeout as time.Duration
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}
