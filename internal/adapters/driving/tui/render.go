package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/veritas/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/veritas/internal/core/domain"
)

// RenderAnswer formats an answer response for display. Claims are listed with
// their evidence ids, followed by the citations they point at.
func RenderAnswer(s *styles.Styles, resp domain.AnswerResponse) string {
	if s == nil {
		s = styles.DefaultStyles()
	}
	var b strings.Builder

	if resp.Refused {
		reason := "unknown"
		if resp.RefusalReason != nil {
			reason = resp.RefusalReason.String()
		}
		b.WriteString(s.Refusal.Render("No grounded answer (" + reason + ")"))
		b.WriteString("\n")
		if resp.Debug != nil && resp.Debug.TopScore != nil {
			b.WriteString(s.Muted.Render(fmt.Sprintf("top score %.3f, threshold %.3f",
				*resp.Debug.TopScore, resp.Debug.Threshold)))
			b.WriteString("\n")
		}
		return b.String()
	}

	for i, c := range resp.Claims {
		fmt.Fprintf(&b, "%s %s %s\n",
			s.Muted.Render(fmt.Sprintf("%d.", i+1)),
			s.Claim.Render(c.Text),
			s.EvidenceID.Render("["+strings.Join(c.EvidenceIDs, ", ")+"]"))
	}

	if len(resp.Citations) > 0 {
		b.WriteString("\n")
		b.WriteString(s.Title.Render("Sources"))
		b.WriteString("\n")
		ids := make([]string, 0, len(resp.Citations))
		for id := range resp.Citations {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			c := resp.Citations[id]
			b.WriteString(s.EvidenceID.Render(id))
			b.WriteString(" ")
			b.WriteString(s.Normal.Render(c.URL))
			b.WriteString("\n")
			b.WriteString(s.Citation.Render("\"" + c.QuoteSpan + "\""))
			b.WriteString("\n")
		}
	}
	return b.String()
}
