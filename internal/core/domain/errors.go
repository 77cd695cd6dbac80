package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
//
// Expected answer outcomes (no evidence, ungrounded claims) are not errors:
// they are RefusalReason values carried in AnswerResponse.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTenantRequired indicates an operation was attempted without a tenant.
	// It is returned before any I/O is performed.
	ErrTenantRequired = errors.New("tenant required")

	// ErrTenantMismatch indicates a stored row belongs to a different tenant
	// than the scope that read it.
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrCacheUnavailable indicates the answer cache could not be read or written.
	// It is never surfaced to callers of the answer pipeline.
	ErrCacheUnavailable = errors.New("answer cache unavailable")

	// ErrLLMUnavailable indicates the LLM provider is not configured.
	ErrLLMUnavailable = errors.New("LLM provider unavailable")

	// ErrEmbeddingUnavailable indicates the embedding provider is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrUnsupportedType indicates an unknown provider or storage backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDimensionMismatch indicates an embedding does not match the index dimensions.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
