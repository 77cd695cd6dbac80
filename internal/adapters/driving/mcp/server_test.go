package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("missing retrieval service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}}, "A")
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("blank tenant returns error", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}, Answer: &mockAnswerService{}}
		_, err := NewServer(ports, " ")
		assert.ErrorIs(t, err, domain.ErrTenantRequired)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}, Answer: &mockAnswerService{}}
		server, err := NewServer(ports, "A")
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports", func(t *testing.T) {
		assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingRetrievalService)
	})

	t.Run("missing answer service", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingAnswerService)
	})

	t.Run("indexing is optional", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}, Answer: &mockAnswerService{}}
		assert.NoError(t, ports.Validate())
	})
}

func TestServer_tenantInfo(t *testing.T) {
	ports := &Ports{Retrieval: &mockRetrievalService{}, Answer: &mockAnswerService{}}
	server, err := NewServer(ports, "A")
	require.NoError(t, err)

	info := server.tenantInfo()
	assert.Equal(t, "A", info.TenantID)
	assert.Equal(t, "policy-v1", info.PolicyVersion)
	assert.Equal(t, []string{"retrieve", "answer"}, info.Tools)

	ports.Indexing = &mockIndexingService{}
	server, err = NewServer(ports, "A")
	require.NoError(t, err)
	assert.Contains(t, server.tenantInfo().Tools, "index_page")
}
