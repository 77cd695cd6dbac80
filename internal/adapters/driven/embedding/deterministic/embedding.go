// Package deterministic provides a network-free embedding provider.
//
// Vectors are derived from SHA-256 digests of the input, so the same text
// always maps to the same vector. It is the default provider for tests and
// offline installs.
package deterministic

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strconv"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// Ensure EmbeddingProvider implements the interface.
var _ driven.EmbeddingProvider = (*EmbeddingProvider)(nil)

// EmbeddingProvider hashes texts into fixed-size vectors.
type EmbeddingProvider struct {
	dimensions int
}

// NewEmbeddingProvider creates a provider producing vectors of the given size.
// A non-positive size uses domain.DefaultEmbeddingDimensions.
func NewEmbeddingProvider(dimensions int) *EmbeddingProvider {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	return &EmbeddingProvider{dimensions: dimensions}
}

// Embed returns one vector per text. It never fails unless ctx is done.
func (p *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.vector(text)
	}
	return out, nil
}

// Dimensions returns the vector size.
func (p *EmbeddingProvider) Dimensions() int {
	return p.dimensions
}

// vector maps component i to the first 32 bits of sha256(text|i), scaled to [-1, 1).
func (p *EmbeddingProvider) vector(text string) []float32 {
	vec := make([]float32, p.dimensions)
	for i := range vec {
		sum := sha256.Sum256([]byte(text + "|" + strconv.Itoa(i)))
		x := float64(binary.BigEndian.Uint32(sum[:4]))
		vec[i] = float32(x/(1<<32)*2 - 1)
	}
	return vec
}
