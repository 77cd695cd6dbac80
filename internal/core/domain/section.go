package domain

// Section is a chunk of page text owned by a tenant.
// ID and SectionHash are deterministic for fixed inputs; VersionHash also
// changes whenever the owning page's version increments.
type Section struct {
	ID          string   `json:"section_id"`
	URL         string   `json:"url"`
	HeadingPath string   `json:"heading_path"`
	Text        string   `json:"text"`
	PageType    PageType `json:"page_type"`
	SectionHash string   `json:"section_hash"`
	VersionHash string   `json:"version_hash"`
	StartChar   int      `json:"start_char"`
	EndChar     int      `json:"end_char"`

	// Embedding is the vector stored alongside the section for the vector index.
	Embedding []float32 `json:"-"`
}

// SectionDraft is sectionizer output before ids and hashes are assigned.
type SectionDraft struct {
	HeadingPath string
	Text        string

	// ChunkIndex is set by positional chunkers; -1 for heading-based sections.
	ChunkIndex int
}

// Positional reports whether the draft came from a positional chunker.
func (d SectionDraft) Positional() bool {
	return d.ChunkIndex >= 0
}

// Page is a crawled page handed to the indexing pipeline.
type Page struct {
	URL     string
	Title   string
	HTML    string
	Text    string
	Version int
}

// RawPageMeta describes the stored page that owns a set of sections.
type RawPageMeta struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Version      int    `json:"version"`
	SectionCount int    `json:"section_count"`
}
