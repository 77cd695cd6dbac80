// Package ratelimit wraps an LLM provider with a token bucket so that
// outbound generate calls stay under a provider quota.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// Ensure LLMProvider implements the interface.
var _ driven.LLMProvider = (*LLMProvider)(nil)

// LLMProvider limits calls to the wrapped provider.
type LLMProvider struct {
	next    driven.LLMProvider
	limiter *rate.Limiter
}

// Wrap returns next limited to requestsPerMinute calls, with a burst of one
// minute's allowance. A non-positive limit returns next unchanged.
func Wrap(next driven.LLMProvider, requestsPerMinute int) driven.LLMProvider {
	if requestsPerMinute <= 0 {
		return next
	}
	return &LLMProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
	}
}

// Generate waits for a token, then delegates. Cancellation while waiting is
// returned as the context's error.
func (p *LLMProvider) Generate(ctx context.Context, prompt string, items []domain.EvidenceItem) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return p.next.Generate(ctx, prompt, items)
}
