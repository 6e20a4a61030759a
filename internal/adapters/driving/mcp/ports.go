package mcp

import (
	"context"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driving"
)

// DocumentReader looks up stored guideline documents by ID.
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Analysis explains uploaded images.
	Analysis driving.AnalysisService

	// Search retrieves audience-safe guideline excerpts.
	Search driving.SearchService

	// Documents serves document resources. Optional.
	Documents DocumentReader
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
