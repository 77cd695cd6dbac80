package chunker

import (
	"strings"
	"testing"
)

func TestParagraphs_Blank(t *testing.T) {
	if drafts := Paragraphs(" \n\n \t"); drafts != nil {
		t.Errorf("expected nil, got %v", drafts)
	}
}

func TestParagraphs_SmallTextIsOneChunk(t *testing.T) {
	drafts := Paragraphs("First paragraph.\n\n  Second paragraph.  \n\n\n")
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	if drafts[0].Text != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("unexpected text %q", drafts[0].Text)
	}
	if drafts[0].ChunkIndex != -1 || drafts[0].HeadingPath != "" {
		t.Errorf("paragraph drafts are not positional and have no heading: %+v", drafts[0])
	}
}

func TestParagraphs_SplitsWithOverlap(t *testing.T) {
	long := strings.Repeat("l", 900)
	short := strings.Repeat("s", 100)
	text := strings.Join([]string{long, long, short, long}, "\n\n")

	drafts := Paragraphs(text)

	// long+long exceeds 1600 on the second paragraph; the first long paragraph
	// is too big to carry over. long+short fits; adding the last long does not,
	// so the short paragraph is carried into the third chunk.
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}
	if drafts[0].Text != long {
		t.Errorf("chunk 0 should be the first paragraph")
	}
	if drafts[1].Text != long+"\n\n"+short {
		t.Errorf("chunk 1 unexpected: %d chars", len(drafts[1].Text))
	}
	if drafts[2].Text != short+"\n\n"+long {
		t.Errorf("chunk 2 should start with the overlapping paragraph")
	}
}

func TestParagraphs_OversizedParagraph(t *testing.T) {
	huge := strings.Repeat("h", 5000)
	drafts := Paragraphs(huge)
	if len(drafts) != 1 || drafts[0].Text != huge {
		t.Fatalf("expected the paragraph as a single chunk")
	}
}
