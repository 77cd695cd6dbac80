// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants retrieve evidence and ask grounded questions against
// a single tenant's corpus.
package mcp

import "errors"

var (
	// ErrMissingRetrievalService is returned when the retrieval service is not provided.
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

	// ErrMissingAnswerService is returned when the answer service is not provided.
	ErrMissingAnswerService = errors.New("mcp: answer service is required")
)
