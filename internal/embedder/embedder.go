package embedder

import "context"

// ModelID is the only model this service serves. It is not configurable.
const ModelID = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"

// Embedder generates vector embeddings from text
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dimensions() int
}

// Compile-time check that HuggingFaceClient implements Embedder
var _ Embedder = (*HuggingFaceClient)(nil)
