package driving

import (
	"context"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// SearchService retrieves audience-safe guideline excerpts without synthesis.
type SearchService interface {
	// Search embeds text, runs hybrid retrieval filtered by report type and
	// applies the safety filter for mode.
	Search(ctx context.Context, text string, reportType domain.ReportType, mode domain.Mode) ([]domain.SafeContext, error)
}
