package domain

import "time"

// EvidenceRef is one entry of an evidence map, keyed by evidence id.
type EvidenceRef struct {
	TenantID  string `json:"tenant_id"`
	URL       string `json:"url"`
	SectionID string `json:"section_id"`
	QuoteSpan string `json:"quote_span"`
}

// Evidence is a persisted, citable quote. QuoteSpan always equals
// section.Text[StartChar:EndChar] at creation time.
type Evidence struct {
	ID          string    `json:"evidence_id"`
	TenantID    string    `json:"tenant_id"`
	SectionID   string    `json:"section_id"`
	URL         string    `json:"url"`
	QuoteSpan   string    `json:"quote_span"`
	StartChar   int       `json:"start_char"`
	EndChar     int       `json:"end_char"`
	VersionHash string    `json:"version_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ref returns the evidence map entry for this record.
func (e Evidence) Ref() EvidenceRef {
	return EvidenceRef{
		TenantID:  e.TenantID,
		URL:       e.URL,
		SectionID: e.SectionID,
		QuoteSpan: e.QuoteSpan,
	}
}

// EvidenceItem is the shape of evidence handed to the LLM provider.
type EvidenceItem struct {
	EvidenceID string `json:"evidence_id"`
	QuoteSpan  string `json:"quote_span"`
	SectionID  string `json:"section_id"`
}

// QuoteSpan is a substring of a section with its byte offsets.
type QuoteSpan struct {
	Text  string
	Start int
	End   int
}
