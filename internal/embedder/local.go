package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

const (
	tokenWeight   = 1.0
	trigramWeight = 0.5
	// emptyFeature seeds the vector for text with no letters or digits.
	emptyFeature = "\x00empty"
)

// LocalEmbedder is an in-process feature-hashing embedder. It needs no
// network or model files and always produces the same vector for the same
// text.
type LocalEmbedder struct {
	dimensions int
}

// Compile-time check that LocalEmbedder implements Embedder
var _ Embedder = (*LocalEmbedder)(nil)

// NewLocalEmbedder creates a local embedder with the model's dimensions.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{dimensions: DefaultDimensions}
}

// Embed generates embeddings for multiple texts.
func (l *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = l.embedOne(text)
	}
	return out, nil
}

// ModelName returns the model identifier the vectors stand in for.
func (l *LocalEmbedder) ModelName() string {
	return ModelID
}

// Dimensions returns the embedding dimension count.
func (l *LocalEmbedder) Dimensions() int {
	return l.dimensions
}

func (l *LocalEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, l.dimensions)
	tokens := tokenize(text)
	for _, tok := range tokens {
		l.addFeature(vec, "t:"+tok, tokenWeight)
		for _, tri := range trigrams(tok) {
			l.addFeature(vec, "c:"+tri, trigramWeight)
		}
	}
	if len(tokens) == 0 || !normalizeL2(vec) {
		clear(vec)
		l.addFeature(vec, emptyFeature, tokenWeight)
		normalizeL2(vec)
	}
	return vec
}

// addFeature hashes a feature into one bucket with a hash-derived sign.
func (l *LocalEmbedder) addFeature(vec []float32, feature string, weight float32) {
	sum := sha256.Sum256([]byte(feature))
	idx := binary.LittleEndian.Uint32(sum[:4]) % uint32(l.dimensions)
	if sum[4]&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// tokenize splits text into lower-cased runs of letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// trigrams returns the character trigrams of a token padded with boundary marks.
func trigrams(token string) []string {
	runes := []rune("#" + token + "#")
	if len(runes) < 3 {
		return nil
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}

// normalizeL2 scales vec to unit length in place. It reports false when the
// vector is all zeros and was left untouched.
func normalizeL2(vec []float32) bool {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return false
	}
	magnitude := math.Sqrt(sumSquares)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / magnitude)
	}
	return true
}
