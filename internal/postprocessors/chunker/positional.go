// Package chunker splits page text into overlapping chunks.
//
// Positional chunks are addressed by their index within the page, so their
// section ids survive edits to the chunk text. Paragraph chunks are the
// content-addressed fallback used when a page has too few headings.
package chunker

import (
	"unicode/utf8"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per positional chunk.
const DefaultChunkSize = 1050

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 150

// Ensure Positional implements the interface.
var _ driven.Sectionizer = (*Positional)(nil)

// Positional splits page text into fixed-size windows. Sizes count runes.
type Positional struct {
	chunkSize int
	overlap   int
}

// Option configures the positional chunker.
type Option func(*Positional)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Positional) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Positional) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a positional chunker with the given options.
func New(opts ...Option) *Positional {
	p := &Positional{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave the window room to advance.
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	return p
}

// Name returns the sectionizer name.
func (p *Positional) Name() string {
	return "positional"
}

// Sectionize splits page.Text. Each draft's ChunkIndex is its position.
func (p *Positional) Sectionize(page domain.Page) []domain.SectionDraft {
	text := page.Text
	if text == "" {
		return nil
	}

	// Byte offset of every rune, plus the end of the string.
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))
	runes := len(offsets) - 1

	drafts := make([]domain.SectionDraft, 0, runes/(p.chunkSize-p.overlap)+1)
	for start := 0; start < runes; start = start + p.chunkSize - p.overlap {
		end := min(start+p.chunkSize, runes)
		drafts = append(drafts, domain.SectionDraft{
			Text:       text[offsets[start]:offsets[end]],
			ChunkIndex: len(drafts),
		})
		if end >= runes {
			break
		}
	}
	return drafts
}
