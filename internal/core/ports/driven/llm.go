package driven

import (
	"context"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// LLMProvider produces an answer draft for a prompt.
// Implementations must be safe for concurrent use once constructed.
//
// Implementations include:
//   - Deterministic (quotes the first evidence items; the default test double)
//   - Ollama, OpenAI, Anthropic, Gemini
type LLMProvider interface {
	// Generate returns the raw model output, expected to be a JSON object
	// of the form {"answer": "...", "claims": [...]}. items are the evidence
	// already embedded in prompt, passed separately for providers that
	// do not call a model.
	Generate(ctx context.Context, prompt string, items []domain.EvidenceItem) (string, error)
}
