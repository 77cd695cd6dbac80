package driving

import (
	"context"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// AnswerService answers questions from the tenant's corpus.
type AnswerService interface {
	// Answer returns a grounded answer or a structured refusal. Refusals are
	// not errors; an error means the pipeline itself failed.
	Answer(ctx context.Context, tenant domain.TenantID, query string) (domain.AnswerResponse, error)
}
