package deterministic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

func TestEmbed_IsStable(t *testing.T) {
	p := NewEmbeddingProvider(0)
	ctx := context.Background()

	first, err := p.Embed(ctx, []string{"opening hours", "parking"})
	require.NoError(t, err)
	second, err := p.Embed(ctx, []string{"opening hours"})
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Len(t, first[0], domain.DefaultEmbeddingDimensions)
	assert.Equal(t, first[0], second[0])
	assert.NotEqual(t, first[0], first[1])
}

func TestEmbed_MatchesHexPrefixFormula(t *testing.T) {
	p := NewEmbeddingProvider(4)

	got, err := p.Embed(context.Background(), []string{"abc"})
	require.NoError(t, err)

	for i, v := range got[0] {
		sum := sha256.Sum256([]byte("abc|" + strconv.Itoa(i)))
		prefix, err := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 64)
		require.NoError(t, err)
		want := float64(prefix)/(1<<32)*2 - 1
		assert.InDelta(t, want, float64(v), 1e-6)
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.Less(t, v, float32(1))
	}
}

func TestEmbed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbeddingProvider(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
