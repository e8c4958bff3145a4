package config

const (
	// BackendHuggingFace runs the model through the Hugging Face feature-extraction pipeline
	BackendHuggingFace = "huggingface"
	// BackendLocal runs the in-process hashing embedder
	BackendLocal = "local"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8000,
			LogLevel:          "info",
			ShutdownTimeoutMs: 10000,
		},
		Model: ModelConfig{
			Backend:     BackendHuggingFace,
			BaseURL:     "https://api-inference.huggingface.co",
			TimeoutMs:   30000,
			LoadRetries: 3,
		},
		Cache: CacheConfig{
			Root: "/tmp",
		},
		Embedding: EmbeddingConfig{
			CacheSize:  0, // disabled; every request reaches the model
			Persistent: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
