package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// AnswerDraft is the decoded LLM output. Only Claims feed the final answer;
// Answer is kept for logging.
type AnswerDraft struct {
	Answer string
	Claims []domain.Claim
}

// errMalformedDraft marks LLM output that could not be decoded as a draft.
var errMalformedDraft = errors.New("malformed answer draft")

type draftJSON struct {
	Answer *string     `json:"answer"`
	Claims []claimJSON `json:"claims"`
}

type claimJSON struct {
	Text        *string  `json:"text"`
	EvidenceIDs []string `json:"evidence_ids"`
	Confidence  *float64 `json:"confidence"`
}

// ExtractJSON returns the JSON object embedded in raw LLM output. One
// enclosing code fence is tolerated. Returns false if no object is found.
func ExtractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")[1:]
		if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
			lines = lines[:n-1]
		}
		s = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ParseAnswerDraft decodes raw LLM output strictly. Unknown fields, a missing
// answer, and claims without text or confidence are rejected.
func ParseAnswerDraft(raw string) (*AnswerDraft, error) {
	payload, ok := ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in output", errMalformedDraft)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()
	var d draftJSON
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedDraft, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", errMalformedDraft)
	}
	if d.Answer == nil {
		return nil, fmt.Errorf("%w: answer is required", errMalformedDraft)
	}

	draft := &AnswerDraft{Answer: *d.Answer, Claims: make([]domain.Claim, 0, len(d.Claims))}
	for i, c := range d.Claims {
		if c.Text == nil {
			return nil, fmt.Errorf("%w: claim %d: text is required", errMalformedDraft, i)
		}
		if c.Confidence == nil {
			return nil, fmt.Errorf("%w: claim %d: confidence is required", errMalformedDraft, i)
		}
		ids := c.EvidenceIDs
		if ids == nil {
			ids = []string{}
		}
		draft.Claims = append(draft.Claims, domain.Claim{
			Text:        *c.Text,
			EvidenceIDs: ids,
			Confidence:  *c.Confidence,
		})
	}
	return draft, nil
}
