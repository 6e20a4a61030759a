// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// KnowledgeStore persists ingested documents and their embedded chunks.
type KnowledgeStore interface {
	// SaveDocument stores a document. doc.ID must be set by the caller.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunk stores a single embedded chunk.
	SaveChunk(ctx context.Context, chunk *domain.Chunk) error

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error
}

// KnowledgeBase is a store that can also rank its own chunks.
// Every storage adapter implements it.
type KnowledgeBase interface {
	KnowledgeStore
	HybridRanker
}
