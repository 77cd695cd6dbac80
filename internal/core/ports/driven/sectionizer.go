package driven

import "github.com/custodia-labs/veritas/internal/core/domain"

// Sectionizer splits a page into section drafts.
type Sectionizer interface {
	Sectionize(page domain.Page) []domain.SectionDraft
}
