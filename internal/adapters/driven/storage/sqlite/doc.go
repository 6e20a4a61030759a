// Package sqlite provides a local knowledge store backed by SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements driven.KnowledgeStore and driven.HybridRanker through a
// single database connection. Embeddings are stored as little-endian float32
// blobs and hybrid ranking is computed in process over the rows that pass the
// report type and category filters.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory and tracked in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.medlens/data/knowledge.db
//
// # Thread Safety
//
// All operations are thread-safe. The store relies on SQLite in WAL mode.
package sqlite
