package embeddings

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashProvider is a deterministic bag-of-tokens embedder for local
// development without API credentials. Texts sharing tokens get
// positive cosine similarity; there is no semantic understanding, so
// match quality is only as good as literal token overlap.
type HashProvider struct {
	dim int
}

// NewHashProvider creates a HashProvider with the given dimension.
func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = 768
	}
	return &HashProvider{dim: dim}
}

// EmbedDocuments embeds a batch of texts.
func (p *HashProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.embed(text)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text.
func (p *HashProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return p.embed(text), nil
}

func (p *HashProvider) embed(text string) []float32 {
	vec := make([]float32, p.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%uint32(p.dim)]++
	}
	return vec
}

// Dimension returns the configured dimension.
func (p *HashProvider) Dimension() int { return p.dim }

// Close is a no-op.
func (p *HashProvider) Close() error { return nil }

var _ Provider = (*HashProvider)(nil)
