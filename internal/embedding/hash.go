package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimensions is the default vector size for the hashing provider.
const DefaultHashDimensions = 256

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashProvider is an offline embedder that maps word unigrams and bigrams
// into a fixed number of signed buckets (the hashing trick), then L2-normalizes.
// It captures lexical overlap only, which is enough for tests and for
// corpora used without an embedding service.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a hashing provider with the given dimensions.
func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashProvider{dimensions: dimensions}
}

// Embed generates an embedding for the given text.
func (p *HashProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return Embedding{}, err
	}

	vec := make([]float32, p.dimensions)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		p.add(vec, stem(tok), 1)
		if i > 0 {
			p.add(vec, stem(tokens[i-1])+" "+stem(tok), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return Embedding{Vector: vec}, nil
}

func (p *HashProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// stem strips a plural suffix so "transformers" and "transformer" share a bucket.
func stem(tok string) string {
	if len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") {
		return tok[:len(tok)-1]
	}
	return tok
}

// ModelName returns the name of the embedding model.
func (p *HashProvider) ModelName() string {
	return fmt.Sprintf("hash-%d", p.dimensions)
}

// Dimensions returns the expected vector dimensions.
func (p *HashProvider) Dimensions() int {
	return p.dimensions
}
