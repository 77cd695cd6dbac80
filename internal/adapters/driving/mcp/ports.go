package mcp

import (
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Retrieval serves the retrieve tool.
	Retrieval driving.RetrievalService

	// Answer serves the answer tool.
	Answer driving.AnswerService

	// Indexing serves the index_page tool. Optional.
	Indexing driving.IndexingService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
