package embedder

import (
	"fmt"
	"strings"
)

// ModelInfo contains metadata about an embedding model.
type ModelInfo struct {
	Name        string // Hugging Face repository id
	Dimensions  int    // Embedding vector dimensions
	ContextSize int    // Maximum sequence length in tokens; longer input is truncated
	Languages   int    // Number of training languages
}

// EmbeddingModels maps repository ids to model info.
var EmbeddingModels = map[string]ModelInfo{
	ModelID: {
		Name:        ModelID,
		Dimensions:  384,
		ContextSize: 128,
		Languages:   50,
	},
}

// DefaultDimensions is the vector size of ModelID.
const DefaultDimensions = 384

// GetModelInfo returns model info by repository id.
func GetModelInfo(name string) (*ModelInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	info, ok := EmbeddingModels[name]
	if !ok {
		return nil, fmt.Errorf("unknown model '%s'", name)
	}
	return &info, nil
}

// GetDimensionsForModel returns the known dimensions for a model, falling back
// to DefaultDimensions for models outside the registry.
func GetDimensionsForModel(name string) int {
	if info, err := GetModelInfo(name); err == nil {
		return info.Dimensions
	}
	return DefaultDimensions
}
