package html

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
	"github.com/custodia-labs/veritas/internal/postprocessors/chunker"
)

// MinHeadingSections is the fewest heading sections accepted before the
// paragraph fallback is used.
const MinHeadingSections = 2

// HeadingSeparator joins heading texts into a heading path.
const HeadingSeparator = " > "

// Ensure Sectionizer implements the interface.
var _ driven.Sectionizer = (*Sectionizer)(nil)

// Sectionizer splits pages by their heading outline.
type Sectionizer struct{}

// New creates a new heading sectionizer.
func New() *Sectionizer {
	return &Sectionizer{}
}

// Name returns the sectionizer name.
func (s *Sectionizer) Name() string {
	return "headings"
}

// Sectionize returns one draft per h1-h3 heading, or paragraph chunks of the
// page text when the outline is too thin. Without page.Text the fallback
// uses the text extracted from page.HTML.
func (s *Sectionizer) Sectionize(page domain.Page) []domain.SectionDraft {
	var (
		drafts []domain.SectionDraft
		doc    *html.Node
	)
	if strings.TrimSpace(page.HTML) != "" {
		if parsed, err := html.Parse(strings.NewReader(page.HTML)); err == nil {
			doc = parsed
			drafts = headingSections(doc)
		}
	}
	if len(drafts) >= MinHeadingSections {
		return drafts
	}

	text := page.Text
	if text == "" && doc != nil {
		text = nodeText(doc)
	}
	return chunker.Paragraphs(text)
}

type heading struct {
	level int
	text  string
}

// headingSections walks h1-h3 in document order. A heading's content is the
// text of its following siblings up to the next heading.
func headingSections(doc *html.Node) []domain.SectionDraft {
	var (
		drafts []domain.SectionDraft
		stack  []heading
	)
	for _, n := range findHeadings(doc) {
		lvl := headingLevel(n)
		text := collapse(textContent(n))
		for len(stack) > 0 && stack[len(stack)-1].level >= lvl {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, heading{level: lvl, text: text})

		content := textUntilHeading(n.NextSibling)
		body := strings.TrimSpace(text + " " + content)
		if body == "" {
			continue
		}
		drafts = append(drafts, domain.SectionDraft{
			HeadingPath: headingPath(stack),
			Text:        body,
			ChunkIndex:  -1,
		})
	}
	return drafts
}

func headingPath(stack []heading) string {
	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = h.text
	}
	return strings.Join(parts, HeadingSeparator)
}

func findHeadings(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped(n) {
				return
			}
			if headingLevel(n) > 0 {
				out = append(out, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// textUntilHeading collects sibling text from n onwards, stopping at the
// first heading sibling.
func textUntilHeading(n *html.Node) string {
	var parts []string
	for sib := n; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && headingLevel(sib) > 0 {
			break
		}
		if t := textBeforeHeading(sib); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// textBeforeHeading returns the text of n, stopping at a descendant heading.
func textBeforeHeading(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return collapse(n.Data)
	case html.ElementNode:
		if headingLevel(n) > 0 || skipped(n) {
			return ""
		}
	case html.DocumentNode:
	default:
		return ""
	}
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && headingLevel(c) > 0 {
			break
		}
		if t := textBeforeHeading(c); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// textContent returns all text below n.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && skipped(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func headingLevel(n *html.Node) int {
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	default:
		return 0
	}
}

// skipped reports elements whose text is never page content.
func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Svg, atom.Template:
		return true
	default:
		return false
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
