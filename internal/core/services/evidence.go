package services

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/veritas/internal/contentaddr"
	"github.com/custodia-labs/veritas/internal/core/domain"
)

// DefaultQuoteMaxLen bounds the length of a selected quote span.
const DefaultQuoteMaxLen = 280

var quoteToken = regexp.MustCompile(`[a-z0-9]+`)

// EvidenceInput is a retrieved section reduced to the fields the evidence
// mapper needs.
type EvidenceInput struct {
	SectionID   string
	URL         string
	VersionHash string
	Quote       domain.QuoteSpan
}

// SelectQuoteSpan picks the sentence of text that shares the most tokens with
// query. Ties go to the earliest sentence, and a sentence longer than maxLen
// characters is trimmed symmetrically around its centre. The returned span always
// satisfies text[Start:End] == Text.
func SelectQuoteSpan(text, query string, maxLen int) domain.QuoteSpan {
	if text == "" {
		return domain.QuoteSpan{}
	}
	if maxLen <= 0 {
		maxLen = DefaultQuoteMaxLen
	}

	queryTokens := tokenSet(query)
	selected := ""
	if sentences := splitSentences(text); len(sentences) > 0 {
		selected = sentences[0]
		best := -1
		for _, s := range sentences {
			if score := sharedTokens(s, queryTokens); score > best {
				best = score
				selected = s
			}
		}
	} else {
		selected = strings.TrimSpace(text)
	}

	pos := strings.Index(text, selected)
	if pos < 0 || selected == "" {
		selected = strings.TrimSpace(firstRunes(text, maxLen))
		pos = strings.Index(text, selected)
		if pos < 0 {
			return domain.QuoteSpan{}
		}
	}

	if n := utf8.RuneCountInString(selected); n > maxLen {
		runes := []rune(selected)
		trim := (n - maxLen) / 2
		pos += len(string(runes[:trim]))
		selected = string(runes[trim : trim+maxLen])
	}

	return domain.QuoteSpan{Text: selected, Start: pos, End: pos + len(selected)}
}

// firstRunes returns the first n runes of s.
func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// splitSentences splits text after sentence punctuation followed by
// whitespace, and at newline runs. Sentences are trimmed; empty ones dropped.
func splitSentences(text string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\n':
			parts = append(parts, text[start:i])
			for i < len(text) && text[i] == '\n' {
				i++
			}
			start = i
		case (c == '.' || c == '?' || c == '!') && i+1 < len(text) && isSpace(text[i+1]):
			parts = append(parts, text[start:i+1])
			i++
			for i < len(text) && isSpace(text[i]) {
				i++
			}
			start = i
		default:
			i++
		}
	}
	parts = append(parts, text[start:])

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range quoteToken.FindAllString(strings.ToLower(s), -1) {
		out[t] = struct{}{}
	}
	return out
}

func sharedTokens(sentence string, query map[string]struct{}) int {
	n := 0
	for t := range tokenSet(sentence) {
		if _, ok := query[t]; ok {
			n++
		}
	}
	return n
}

// BuildEvidenceMap returns evidence id to reference for every input.
// Inputs that share section, URL and quote collapse to one entry.
func BuildEvidenceMap(tenant domain.TenantID, inputs []EvidenceInput) map[string]domain.EvidenceRef {
	out := make(map[string]domain.EvidenceRef, len(inputs))
	for _, in := range inputs {
		id := contentaddr.EvidenceID(tenant.String(), in.SectionID, in.URL, in.Quote.Text)
		out[id] = domain.EvidenceRef{
			TenantID:  tenant.String(),
			URL:       in.URL,
			SectionID: in.SectionID,
			QuoteSpan: in.Quote.Text,
		}
	}
	return out
}

// EvidenceRecords returns the records to persist for inputs, deduplicated
// by evidence id and in input order.
func EvidenceRecords(tenant domain.TenantID, inputs []EvidenceInput, now time.Time) []domain.Evidence {
	seen := make(map[string]bool, len(inputs))
	records := make([]domain.Evidence, 0, len(inputs))
	for _, in := range inputs {
		id := contentaddr.EvidenceID(tenant.String(), in.SectionID, in.URL, in.Quote.Text)
		if seen[id] {
			continue
		}
		seen[id] = true
		records = append(records, domain.Evidence{
			ID:          id,
			TenantID:    tenant.String(),
			SectionID:   in.SectionID,
			URL:         in.URL,
			QuoteSpan:   in.Quote.Text,
			StartChar:   in.Quote.Start,
			EndChar:     in.Quote.End,
			VersionHash: in.VersionHash,
			CreatedAt:   now,
		})
	}
	return records
}
