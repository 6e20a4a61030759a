package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/core/ports/driving"
	"github.com/custodia-labs/medlens/internal/logger"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchOptions tunes hybrid ranking requests.
type SearchOptions struct {
	MatchCount   int
	VectorWeight float64
	TextWeight   float64
}

// DefaultSearchOptions returns the standard ranking parameters.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		MatchCount:   domain.DefaultMatchCount,
		VectorWeight: domain.DefaultVectorWeight,
		TextWeight:   domain.DefaultTextWeight,
	}
}

// HybridSearchEngine runs ranking requests with a report type filter,
// retries without the filter when nothing matches, and enriches results
// with document titles.
type HybridSearchEngine struct {
	ranker driven.HybridRanker
	opts   SearchOptions
}

// NewHybridSearchEngine creates a search engine over ranker.
func NewHybridSearchEngine(ranker driven.HybridRanker, opts SearchOptions) *HybridSearchEngine {
	def := DefaultSearchOptions()
	if opts.MatchCount <= 0 {
		opts.MatchCount = def.MatchCount
	}
	if opts.VectorWeight == 0 && opts.TextWeight == 0 {
		opts.VectorWeight, opts.TextWeight = def.VectorWeight, def.TextWeight
	}
	return &HybridSearchEngine{ranker: ranker, opts: opts}
}

// Search returns ranked chunks for the query embedding and text. Any ranking
// failure yields an empty result.
func (e *HybridSearchEngine) Search(
	ctx context.Context, embedding []float32, queryText string, reportType domain.ReportType,
) []domain.RetrievedChunk {
	if e == nil || e.ranker == nil {
		return nil
	}

	q := domain.HybridQuery{
		Embedding:    embedding,
		Text:         ExtractKeywords(queryText),
		ReportType:   string(reportType),
		MatchCount:   e.opts.MatchCount,
		VectorWeight: e.opts.VectorWeight,
		TextWeight:   e.opts.TextWeight,
	}
	logger.Debug("Keywords: %q", q.Text)

	chunks, err := e.ranker.HybridSearch(ctx, q)
	if err != nil {
		logger.Warn("Hybrid search failed: %v", err)
		return nil
	}
	logger.Debug("Retrieved %d chunks with filter %q", len(chunks), q.ReportType)

	if len(chunks) == 0 && q.ReportType != "" {
		logger.Debug("Retrying without report type filter")
		chunks, err = e.ranker.HybridSearch(ctx, q.Unfiltered())
		if err != nil {
			logger.Warn("Unfiltered hybrid search failed: %v", err)
			return nil
		}
		logger.Debug("Retrieved %d chunks without filter", len(chunks))
	}

	if len(chunks) == 0 {
		return nil
	}

	e.enrichTitles(ctx, chunks)
	return chunks
}

// enrichTitles fills DocumentTitle with one batched lookup. Misses and
// lookup failures become DefaultDocumentTitle.
func (e *HybridSearchEngine) enrichTitles(ctx context.Context, chunks []domain.RetrievedChunk) {
	ids := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for i := range chunks {
		id := chunks[i].DocumentID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	titles, err := e.ranker.DocumentTitles(ctx, ids)
	if err != nil {
		logger.Warn("Title lookup failed: %v", err)
	}

	for i := range chunks {
		title, ok := titles[chunks[i].DocumentID]
		if !ok || title == "" {
			title = domain.DefaultDocumentTitle
		}
		chunks[i].DocumentTitle = title
	}
}

// Retriever embeds query text and runs hybrid search. It is shared by the
// analysis pipeline and SearchService.
type Retriever struct {
	embedder driven.EmbeddingService
	engine   *HybridSearchEngine
	timeout  time.Duration
}

// NewRetriever creates a retriever. Either dependency may be nil, in which
// case retrieval is skipped.
func NewRetriever(embedder driven.EmbeddingService, engine *HybridSearchEngine, timeout time.Duration) *Retriever {
	return &Retriever{embedder: embedder, engine: engine, timeout: timeout}
}

// Enabled reports whether retrieval can run at all.
func (r *Retriever) Enabled() bool {
	return r != nil && r.embedder != nil && r.engine != nil && r.engine.ranker != nil
}

// Retrieve returns safe contexts for text. Failures yield nil.
func (r *Retriever) Retrieve(
	ctx context.Context, text string, reportType domain.ReportType, mode domain.Mode,
) []domain.SafeContext {
	if !r.Enabled() {
		return nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	embedding, err := r.embedder.Embed(ctx, text, driven.TaskRetrievalQuery)
	if err != nil || len(embedding) == 0 {
		logger.Warn("Query embedding unavailable, skipping retrieval: %v", err)
		metrics.RecordFallback(metrics.StageEmbedding)
		return nil
	}

	chunks := r.engine.Search(ctx, embedding, text, reportType)
	if len(chunks) == 0 {
		metrics.RecordFallback(metrics.StageRetrieval)
		return nil
	}

	safe := FilterSafe(chunks, mode)
	logger.Debug("Safety filter kept %d of %d chunks", len(safe), len(chunks))
	return safe
}

// SearchService exposes retrieval and safety filtering without synthesis.
type SearchService struct {
	retriever *Retriever
}

// NewSearchService creates a new search service.
func NewSearchService(retriever *Retriever) *SearchService {
	return &SearchService{retriever: retriever}
}

// Search returns audience-safe guideline excerpts for text. An empty report
// type searches all report types.
func (s *SearchService) Search(
	ctx context.Context, text string, reportType domain.ReportType, mode domain.Mode,
) ([]domain.SafeContext, error) {
	logger.Section("Guideline Search")

	if !s.retriever.Enabled() {
		return nil, fmt.Errorf("search: %w", domain.ErrEmbeddingUnavailable)
	}
	if text == "" {
		return []domain.SafeContext{}, nil
	}

	results := s.retriever.Retrieve(ctx, text, reportType, mode)
	if results == nil {
		results = []domain.SafeContext{}
	}
	logger.Info("Search returned %d safe contexts", len(results))
	return results, nil
}
