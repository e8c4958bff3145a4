package embedder

import (
	"context"
	"log/slog"
)

// Store persists embeddings across restarts.
type Store interface {
	Get(ctx context.Context, model, text string, dim int) ([]float32, bool, error)
	Put(ctx context.Context, model, text string, vector []float32) error
}

// StoredEmbedder consults a persistent Store before calling the wrapped
// embedder. Store failures are logged and never fail a request.
type StoredEmbedder struct {
	embedder Embedder
	store    Store
	observer CacheObserver
	logger   *slog.Logger
}

// Compile-time check that StoredEmbedder implements Embedder
var _ Embedder = (*StoredEmbedder)(nil)

// NewStoredEmbedder wraps embedder with store. observer and logger may be nil.
func NewStoredEmbedder(embedder Embedder, store Store, observer CacheObserver, logger *slog.Logger) *StoredEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoredEmbedder{
		embedder: embedder,
		store:    store,
		observer: observer,
		logger:   logger,
	}
}

// Embed returns stored vectors where present and embeds the rest.
func (s *StoredEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := s.embedder.ModelName()
	dim := s.embedder.Dimensions()
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		vec, ok, err := s.store.Get(ctx, model, text, dim)
		if err != nil {
			s.logger.Warn("embedding store read failed", "error", err)
		}
		s.observe(ok)
		if ok {
			results[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	vecs, err := s.embedder.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	for i, vec := range vecs {
		if i >= len(missingIdx) {
			break
		}
		results[missingIdx[i]] = vec
		if len(vec) == 0 {
			continue
		}
		if err := s.store.Put(ctx, model, missing[i], vec); err != nil {
			s.logger.Warn("embedding store write failed", "error", err)
		}
	}
	return results, nil
}

func (s *StoredEmbedder) observe(hit bool) {
	if s.observer != nil {
		s.observer.ObserveCache("persistent", hit)
	}
}

// ModelName delegates to the underlying embedder.
func (s *StoredEmbedder) ModelName() string {
	return s.embedder.ModelName()
}

// Dimensions delegates to the underlying embedder.
func (s *StoredEmbedder) Dimensions() int {
	return s.embedder.Dimensions()
}
