// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The answer pipeline is split across the following files:
//
//   - retrieval.go: hybrid vector + lexical retrieval, merge and rerank
//   - evidence.go: quote selection and evidence id assignment
//   - grounding.go: claim validation against the evidence map
//   - cache.go: versioned answer cache keys and expiry
//   - answer.go: the orchestrator that ties them together
//
// Services never see a tenant-less storage handle. Every request starts by
// asking the ScopeProvider for a TenantScope.
package services
