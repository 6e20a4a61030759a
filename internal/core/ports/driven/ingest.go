package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// Chunker splits a document into ordered chunks ready for embedding.
type Chunker interface {
	// Process returns chunks with contiguous indexes starting at zero.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// RateLimiter paces outbound embedding requests.
type RateLimiter interface {
	// Wait blocks until a request may be sent or ctx is done.
	Wait(ctx context.Context) error

	// RecordRateLimitError pushes the limiter into backoff. A non-positive
	// duration selects the limiter's default backoff.
	RecordRateLimitError(retryAfter time.Duration)
}

// Normaliser converts a guideline file into plain text. The returned input
// carries Title, Content and Metadata; the caller supplies the rest.
type Normaliser interface {
	// Extensions lists the lower-case file extensions handled, with the dot.
	Extensions() []string

	// Normalise extracts the readable text of file.
	Normalise(ctx context.Context, file domain.SourceFile) (*domain.DocumentInput, error)
}
