package embedder

import (
	"context"
	"crypto/sha256"
	"sync"
)

// MockEmbedder is a test implementation of the Embedder interface that generates
// deterministic embeddings based on input text. It uses SHA256 hashing to ensure
// that the same input always produces the same output embedding.
type MockEmbedder struct {
	mu         sync.Mutex
	dimensions int
	modelName  string
	err        error
	empty      bool
	calls      int
}

// Compile-time check that MockEmbedder implements Embedder
var _ Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a MockEmbedder producing DefaultDimensions-sized
// vectors named after ModelID.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		dimensions: DefaultDimensions,
		modelName:  ModelID,
	}
}

// SetError makes every subsequent Embed call fail with err. nil restores success.
func (m *MockEmbedder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetEmpty makes Embed return an empty result without error.
func (m *MockEmbedder) SetEmpty(empty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.empty = empty
}

// Calls returns the number of Embed invocations.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Embed generates deterministic embeddings for multiple text inputs.
func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	err, empty := m.err, m.empty
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if empty {
		return [][]float32{}, nil
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = m.generateDeterministic(text)
	}
	return embeddings, nil
}

// ModelName returns the name of the mock model.
func (m *MockEmbedder) ModelName() string {
	return m.modelName
}

// Dimensions returns the embedding dimension count.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// generateDeterministic spreads the SHA256 of text over the vector and
// normalizes it to unit magnitude.
func (m *MockEmbedder) generateDeterministic(text string) []float32 {
	embedding := make([]float32, m.dimensions)
	hash := sha256.Sum256([]byte(text))

	for i := 0; i < m.dimensions; i++ {
		val := float64(hash[i%32]) / 255.0
		offset := float64(i) / float64(m.dimensions)
		embedding[i] = float32(val*0.5 + offset*0.5)
	}

	normalizeL2(embedding)
	return embedding
}
