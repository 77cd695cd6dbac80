// Package sqlite provides a SQLite-based implementation of the tenant scope ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database holds every tenant:
//
//   - sections: section text, hashes and the embedding blob
//   - sections_fts: FTS5 lexical index over section text
//   - raw_pages: page metadata and version counters
//   - evidence: citable quote spans
//   - answer_cache: versioned answer payloads
//   - tenant_index_versions: the tenant's corpus fingerprints
//
// Every statement issued by a scope binds the scope's tenant id. Vector search is
// a brute-force L2 scan over the tenant's embeddings.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.veritas/data/veritas.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
