package embedder

import (
	"context"
	"fmt"
	"time"
)

// ProviderType represents the backend producing embeddings
type ProviderType string

const (
	// ProviderHuggingFace calls a Hugging Face feature-extraction endpoint
	ProviderHuggingFace ProviderType = "huggingface"
	// ProviderLocal hashes text in-process
	ProviderLocal ProviderType = "local"
)

// IsValid returns true if the provider type is recognized
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderHuggingFace, ProviderLocal:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable name for the provider
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderHuggingFace:
		return "Hugging Face Inference"
	case ProviderLocal:
		return "Local (feature hashing)"
	default:
		return "Unknown"
	}
}

// AllProviders returns all available provider types
func AllProviders() []ProviderType {
	return []ProviderType{ProviderHuggingFace, ProviderLocal}
}

// ProviderConfig holds the configuration for creating an embedder
type ProviderConfig struct {
	Provider    string
	BaseURL     string
	Token       string
	Timeout     time.Duration
	LoadRetries int
	// Retry overrides the backoff used while warming up. Zero uses
	// DefaultRetryConfig with MaxRetries set from LoadRetries.
	Retry RetryConfig
}

// NewFromConfig constructs the configured backend. For huggingface it runs
// a warm-up inference so a returned embedder is known to be serving.
func NewFromConfig(ctx context.Context, cfg ProviderConfig) (Embedder, error) {
	provider := ProviderType(cfg.Provider)
	if !provider.IsValid() {
		return nil, ErrUnknownBackend.WithCause(fmt.Errorf("backend %q", cfg.Provider))
	}

	switch provider {
	case ProviderLocal:
		return NewLocalEmbedder(), nil

	case ProviderHuggingFace:
		client := NewHuggingFaceClient(HuggingFaceConfig{
			BaseURL: cfg.BaseURL,
			Token:   cfg.Token,
			Model:   ModelID,
			Timeout: cfg.Timeout,
		})

		retry := cfg.Retry
		if retry == (RetryConfig{}) {
			retry = DefaultRetryConfig()
			retry.MaxRetries = cfg.LoadRetries
		}
		if err := WithRetry(ctx, func() error { return client.Warmup(ctx) }, retry); err != nil {
			return nil, fmt.Errorf("failed to load model %s: %w", ModelID, err)
		}
		return client, nil

	default:
		return nil, ErrUnknownBackend.WithCause(fmt.Errorf("backend %q", cfg.Provider))
	}
}
