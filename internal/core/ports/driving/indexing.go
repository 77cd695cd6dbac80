package driving

import (
	"context"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// IndexResult summarises one IndexPage call.
type IndexResult struct {
	URL           string
	Sections      int
	ACVersionHash string
}

// IndexingService adds pages to a tenant's corpus.
type IndexingService interface {
	// IndexPage sectionizes, embeds and stores page, then bumps the tenant's
	// AC version hash.
	IndexPage(ctx context.Context, tenant domain.TenantID, page domain.Page) (IndexResult, error)
}
