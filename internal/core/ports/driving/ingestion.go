package driving

import (
	"context"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// IngestionService adds guideline documents to the knowledge base.
type IngestionService interface {
	// Ingest processes documents sequentially and reports per-document outcomes.
	// It fails as a whole only when no document can be processed at all:
	// domain.ErrEmbeddingUnavailable or domain.ErrInvalidInput.
	Ingest(ctx context.Context, docs []domain.DocumentInput) (domain.IngestSummary, error)
}
