// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Tenant Scoping
//
// Every storage port is reached through a TenantScope obtained from
// ScopeProvider.ForTenant. The tenant is validated once, when the scope is
// built and before any I/O, and every scoped method filters by it. No storage
// method accepts a tenant argument, so a caller cannot forget the filter.
//
// # Required Interfaces
//
//   - ScopeProvider / TenantScope: sections, vector and lexical indexes,
//     evidence, answer cache and index versions
//   - EmbeddingProvider: query and section embeddings
//   - LLMProvider: draft answers as JSON
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - Metrics: pipeline counters. A nil Metrics disables instrumentation.
//   - Sectionizer: page to section drafts, used by indexing only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
