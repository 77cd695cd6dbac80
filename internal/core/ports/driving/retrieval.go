package driving

import (
	"context"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// RetrievalService provides hybrid retrieval to external actors.
type RetrievalService interface {
	// Retrieve returns up to k reranked candidates for query, plus debug info.
	Retrieve(ctx context.Context, tenant domain.TenantID, query string, k int) (domain.RetrieveResponse, error)
}
