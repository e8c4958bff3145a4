package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// HasErrors returns true if there are any validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// validLogLevels defines the allowed log level values
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validBackends defines the allowed model backends
var validBackends = map[string]bool{
	BackendHuggingFace: true,
	BackendLocal:       true,
}

// Validate checks the configuration for errors and returns all validation errors found
func Validate(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	// Server validation
	if cfg.Server.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "server.host",
			Message: "must not be empty",
		})
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "must be between 0 and 65535",
		})
	}
	if !validLogLevels[cfg.Server.LogLevel] {
		errors = append(errors, ValidationError{
			Field:   "server.log_level",
			Message: fmt.Sprintf("invalid log level '%s'; valid values are: debug, info, warn, error", cfg.Server.LogLevel),
		})
	}
	if cfg.Server.ShutdownTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.shutdown_timeout_ms",
			Message: "must be non-negative",
		})
	}

	// Model validation
	if !validBackends[cfg.Model.Backend] {
		errors = append(errors, ValidationError{
			Field:   "model.backend",
			Message: fmt.Sprintf("invalid backend '%s'; valid values are: huggingface, local", cfg.Model.Backend),
		})
	}
	if cfg.Model.Backend == BackendHuggingFace && cfg.Model.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "model.base_url",
			Message: "must not be empty for the huggingface backend",
		})
	}
	if cfg.Model.TimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "model.timeout_ms",
			Message: "must be non-negative",
		})
	}
	if cfg.Model.LoadRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "model.load_retries",
			Message: "must be non-negative",
		})
	}

	// Cache validation
	if cfg.Cache.Root == "" {
		errors = append(errors, ValidationError{
			Field:   "cache.root",
			Message: "must not be empty",
		})
	}

	// Embedding validation
	if cfg.Embedding.CacheSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.cache_size",
			Message: "must be non-negative",
		})
	}

	return errors
}

// ValidateOrError is a convenience function that returns an error if validation fails
func ValidateOrError(cfg *Config) error {
	errors := Validate(cfg)
	if errors.HasErrors() {
		return errors
	}
	return nil
}
