// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// HybridRanker scores stored chunks by a weighted sum of vector similarity
// and lexical match rank.
//
// Implementations:
//   - Postgres hybrid_search function (pgvector + tsvector)
//   - SQLite with in-process scoring
//   - In-memory store for tests
type HybridRanker interface {
	// HybridSearch returns at most q.MatchCount candidates ordered by CombinedScore.
	// DocumentTitle is left empty; enrichment is the caller's job.
	HybridSearch(ctx context.Context, q domain.HybridQuery) ([]domain.RetrievedChunk, error)

	// DocumentTitles returns the titles of the given documents keyed by ID.
	// Unknown IDs are absent from the map.
	DocumentTitles(ctx context.Context, ids []string) (map[string]string, error)
}
