// Package domain defines the core business entities for Veritas.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Section: A tenant-owned chunk of page text with stable ids and hashes
//   - RetrievalCandidate: A ranked, per-request retrieval result
//   - Evidence: A persisted, citable quote from a section
//   - Claim: A statement produced by the LLM, tied to evidence ids
//   - AnswerResponse: The grounded answer, or a structured refusal
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
