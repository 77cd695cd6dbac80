// Package deterministic provides a network-free LLM provider.
//
// It answers by quoting up to three evidence items verbatim, one claim per
// item, which always passes grounding. It is the default provider for tests
// and offline installs.
package deterministic

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// Ensure LLMProvider implements the interface.
var _ driven.LLMProvider = (*LLMProvider)(nil)

const (
	maxClaims       = 3
	maxClaimRunes   = 80
	claimConfidence = 0.85
	emptyClaimText  = "Evidence."
)

type draft struct {
	Answer string  `json:"answer"`
	Claims []claim `json:"claims"`
}

type claim struct {
	Text        string   `json:"text"`
	EvidenceIDs []string `json:"evidence_ids"`
	Confidence  float64  `json:"confidence"`
}

// LLMProvider builds a draft from the evidence items and ignores the prompt.
type LLMProvider struct{}

// NewLLMProvider creates a deterministic LLM provider.
func NewLLMProvider() *LLMProvider {
	return &LLMProvider{}
}

// Generate returns a JSON draft quoting the first evidence items.
func (p *LLMProvider) Generate(ctx context.Context, _ string, items []domain.EvidenceItem) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if len(items) > maxClaims {
		items = items[:maxClaims]
	}
	d := draft{Claims: make([]claim, 0, len(items))}
	texts := make([]string, 0, len(items))
	for _, item := range items {
		text := quotePrefix(item.QuoteSpan)
		d.Claims = append(d.Claims, claim{
			Text:        text,
			EvidenceIDs: []string{item.EvidenceID},
			Confidence:  claimConfidence,
		})
		texts = append(texts, text)
	}
	d.Answer = strings.Join(texts, " ")

	out, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// quotePrefix returns the first 80 runes of quote without trailing space.
func quotePrefix(quote string) string {
	runes := []rune(quote)
	if len(runes) > maxClaimRunes {
		runes = runes[:maxClaimRunes]
	}
	text := strings.TrimRight(string(runes), " \t\r\n")
	if text == "" {
		return emptyClaimText
	}
	return text
}
