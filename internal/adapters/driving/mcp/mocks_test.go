package mcp

import (
	"context"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	resp   domain.RetrieveResponse
	err    error
	tenant domain.TenantID
	k      int
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	tenant domain.TenantID,
	_ string,
	k int,
) (domain.RetrieveResponse, error) {
	m.tenant, m.k = tenant, k
	return m.resp, m.err
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	resp   domain.AnswerResponse
	err    error
	tenant domain.TenantID
}

func (m *mockAnswerService) Answer(_ context.Context, tenant domain.TenantID, _ string) (domain.AnswerResponse, error) {
	m.tenant = tenant
	return m.resp, m.err
}

func (m *mockAnswerService) PolicyVersion() string {
	return "policy-v1"
}

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	page domain.Page
	err  error
}

func (m *mockIndexingService) IndexPage(
	_ context.Context,
	_ domain.TenantID,
	page domain.Page,
) (driving.IndexResult, error) {
	m.page = page
	if m.err != nil {
		return driving.IndexResult{}, m.err
	}
	return driving.IndexResult{URL: page.URL, Sections: 2, ACVersionHash: "ac-1"}, nil
}
