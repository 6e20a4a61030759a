package driving

import (
	"context"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// AnalysisService explains an uploaded medical image.
type AnalysisService interface {
	// Analyze always returns a complete result for req.Mode. Failures of any
	// provider degrade the content, never the shape.
	Analyze(ctx context.Context, req domain.AnalysisRequest) domain.AnalysisResult
}
