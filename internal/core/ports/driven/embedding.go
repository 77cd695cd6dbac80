package driven

import "context"

// EmbeddingProvider turns texts into vectors.
// Implementations must be safe for concurrent use once constructed.
//
// Implementations include:
//   - Deterministic (hash-based, network-free; the default test double)
//   - Ollama, OpenAI, Gemini
type EmbeddingProvider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
