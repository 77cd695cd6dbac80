package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

func newServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports, "tenant-a")
	require.NoError(t, err)
	return server
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns candidates for the bound tenant", func(t *testing.T) {
		retrieval := &mockRetrievalService{resp: domain.RetrieveResponse{
			Candidates: []domain.RetrievalCandidate{{
				SectionID:   "s1",
				URL:         "https://a.test/faq",
				MergedScore: 0.8,
				RerankScore: 0.6,
				Snippet:     "Open nine to five.",
			}},
		}}
		server := newServer(t, &Ports{Retrieval: retrieval, Answer: &mockAnswerService{}})

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "hours", K: 5})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "s1", output.Candidates[0].SectionID)
		assert.Equal(t, "Open nine to five.", output.Candidates[0].Snippet)
		assert.Equal(t, domain.TenantID("tenant-a"), retrieval.tenant)
		assert.Equal(t, 5, retrieval.k)
	})

	t.Run("default k", func(t *testing.T) {
		retrieval := &mockRetrievalService{}
		server := newServer(t, &Ports{Retrieval: retrieval, Answer: &mockAnswerService{}})

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "hours"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, domain.DefaultRetrieveK, retrieval.k)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		retrieval := &mockRetrievalService{err: errors.New("index offline")}
		server := newServer(t, &Ports{Retrieval: retrieval, Answer: &mockAnswerService{}})

		_, _, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "hours"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "index offline")
	})
}

func TestServer_handleAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("passes refusals through", func(t *testing.T) {
		answer := &mockAnswerService{resp: domain.Refusal(domain.RefusalNoEvidence, nil)}
		server := newServer(t, &Ports{Retrieval: &mockRetrievalService{}, Answer: answer})

		_, output, err := server.handleAnswer(ctx, nil, AnswerInput{Query: "hours?"})

		require.NoError(t, err)
		assert.True(t, output.Refused)
		require.NotNil(t, output.RefusalReason)
		assert.Equal(t, domain.RefusalNoEvidence, *output.RefusalReason)
		assert.Equal(t, domain.TenantID("tenant-a"), answer.tenant)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		answer := &mockAnswerService{err: domain.ErrLLMUnavailable}
		server := newServer(t, &Ports{Retrieval: &mockRetrievalService{}, Answer: answer})

		_, _, err := server.handleAnswer(ctx, nil, AnswerInput{Query: "hours?"})

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}

func TestServer_handleIndexPage(t *testing.T) {
	ctx := context.Background()
	indexing := &mockIndexingService{}
	server := newServer(t, &Ports{Retrieval: &mockRetrievalService{}, Answer: &mockAnswerService{}, Indexing: indexing})

	_, output, err := server.handleIndexPage(ctx, nil, IndexPageInput{URL: "https://a.test/faq", Text: "Hello"})

	require.NoError(t, err)
	assert.Equal(t, 2, output.Sections)
	assert.Equal(t, "ac-1", output.ACVersionHash)
	assert.Equal(t, "Hello", indexing.page.Text)

	_, _, err = server.handleIndexPage(ctx, nil, IndexPageInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
