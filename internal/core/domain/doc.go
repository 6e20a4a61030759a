// Package domain defines the core business entities for medlens.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A guideline document submitted for ingestion
//   - Chunk: A retrievable unit within a document
//   - RetrievedChunk / SafeContext: Query-time retrieval results
//   - ReportType / Mode: Closed enumerations driving the explanation pipeline
//   - AnalysisResult: The audience-specific explanation returned to callers
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
