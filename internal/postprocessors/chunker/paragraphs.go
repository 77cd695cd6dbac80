package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// Paragraph fallback limits, in characters.
const (
	ParagraphChunkMax     = 1600
	ParagraphChunkOverlap = 150
)

var blankLine = regexp.MustCompile(`\n\s*\n`)

// Paragraphs groups blank-line separated paragraphs into chunks of at most
// ParagraphChunkMax characters. Each new chunk repeats trailing paragraphs of
// the previous one totalling at most ParagraphChunkOverlap characters.
// A single paragraph longer than the limit becomes its own chunk.
func Paragraphs(text string) []domain.SectionDraft {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var paras []string
	for _, p := range blankLine.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}

	var (
		chunks []string
		acc    []string
		accLen int
	)
	for _, p := range paras {
		pLen := utf8.RuneCountInString(p) + 2
		if accLen+pLen > ParagraphChunkMax && len(acc) > 0 {
			chunks = append(chunks, strings.Join(acc, "\n\n"))
			acc, accLen = overlapTail(acc)
		}
		acc = append(acc, p)
		accLen += pLen
	}
	if len(acc) > 0 {
		chunks = append(chunks, strings.Join(acc, "\n\n"))
	}

	drafts := make([]domain.SectionDraft, len(chunks))
	for i, c := range chunks {
		drafts[i] = domain.SectionDraft{Text: c, ChunkIndex: -1}
	}
	return drafts
}

// overlapTail returns the trailing paragraphs of acc that fit in the overlap.
func overlapTail(acc []string) ([]string, int) {
	var (
		tail    []string
		tailLen int
	)
	for i := len(acc) - 1; i >= 0; i-- {
		n := utf8.RuneCountInString(acc[i])
		if tailLen+n > ParagraphChunkOverlap {
			break
		}
		tail = append([]string{acc[i]}, tail...)
		tailLen += n + 2
	}
	return tail, tailLen
}
