package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/core/ports/driving"
	"github.com/custodia-labs/medlens/internal/logger"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// DefaultIngestWorkers bounds concurrent chunk embedding within one document.
const DefaultIngestWorkers = 4

// MessageMissingFields is the per-document error for incomplete input.
const MessageMissingFields = "Missing required fields"

// UnknownTitle labels results for documents submitted without a title.
const UnknownTitle = "Unknown"

// IngestionService persists documents, chunks them and stores an embedding
// for every chunk. Documents are processed one at a time; chunks of a single
// document are embedded on a bounded worker pool.
type IngestionService struct {
	store    driven.KnowledgeStore
	embedder driven.EmbeddingService
	chunker  driven.Chunker
	limiter  driven.RateLimiter
	pool     *ants.Pool
}

// NewIngestionService creates an ingestion coordinator. embedder may be nil,
// in which case every Ingest call fails with domain.ErrEmbeddingUnavailable.
// limiter may be nil to disable pacing.
func NewIngestionService(
	store driven.KnowledgeStore,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
	limiter driven.RateLimiter,
	workers int,
) (*IngestionService, error) {
	if store == nil || chunker == nil {
		return nil, fmt.Errorf("%w: store and chunker are required", domain.ErrInvalidInput)
	}
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p any) {
		logger.Error("Embedding worker panicked: %v", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &IngestionService{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		limiter:  limiter,
		pool:     pool,
	}, nil
}

// Close releases the worker pool.
func (s *IngestionService) Close() {
	s.pool.Release()
}

// Ingest processes docs sequentially and reports one result per document.
func (s *IngestionService) Ingest(ctx context.Context, docs []domain.DocumentInput) (domain.IngestSummary, error) {
	logger.Section("Ingestion")

	if s.embedder == nil {
		return domain.IngestSummary{}, fmt.Errorf("ingest: %w", domain.ErrEmbeddingUnavailable)
	}
	if len(docs) == 0 || docs[0].Title == "" {
		return domain.IngestSummary{}, fmt.Errorf("ingest: %w: no documents", domain.ErrInvalidInput)
	}

	results := make([]domain.IngestResult, 0, len(docs))
	for i := range docs {
		results = append(results, s.ingestOne(ctx, docs[i]))
	}

	summary := domain.NewIngestSummary(results)
	logger.Info("%s", summary.Message)
	return summary, nil
}

func (s *IngestionService) ingestOne(ctx context.Context, in domain.DocumentInput) domain.IngestResult {
	if err := in.Validate(); err != nil {
		title := in.Title
		if title == "" {
			title = UnknownTitle
		}
		logger.Warn("Skipping document %q: %v", title, err)
		return domain.IngestResult{Title: title, Error: MessageMissingFields}
	}

	doc := in.Document(uuid.New().String())
	if err := s.store.SaveDocument(ctx, &doc); err != nil {
		logger.Warn("Failed to insert document %q: %v", doc.Title, err)
		return domain.IngestResult{
			Title: in.Title,
			Error: fmt.Sprintf("Failed to insert document: %v", err),
		}
	}
	logger.Debug("Stored document %s (%s)", doc.ID, doc.Title)

	chunks, err := s.chunker.Process(ctx, &doc)
	if err != nil {
		return domain.IngestResult{
			Title:      in.Title,
			DocumentID: doc.ID,
			Error:      fmt.Sprintf("Failed to chunk document: %v", err),
		}
	}
	logger.Debug("Created %d chunks", len(chunks))

	s.embedChunks(ctx, chunks)

	created := 0
	for i := range chunks {
		if chunks[i].Embedding == nil {
			metrics.RecordChunk(false)
			continue
		}
		if err := s.store.SaveChunk(ctx, &chunks[i]); err != nil {
			logger.Warn("Error inserting chunk %d: %v", chunks[i].Index, err)
			metrics.RecordChunk(false)
			continue
		}
		metrics.RecordChunk(true)
		created++
	}
	logger.Info("Created %d/%d chunks for document %s", created, len(chunks), doc.ID)

	result := domain.IngestResult{
		Title:         in.Title,
		DocumentID:    doc.ID,
		ChunksCreated: created,
		ChunksFailed:  len(chunks) - created,
	}
	if result.ChunksFailed > 0 {
		logger.Warn("Skipped %d/%d chunks for document %s", result.ChunksFailed, len(chunks), doc.ID)
		// A cancelled or expired context leaves the document truncated.
		if err := ctx.Err(); err != nil {
			result.Error = fmt.Sprintf("Ingestion interrupted after %d/%d chunks: %v", created, len(chunks), err)
		}
	}
	return result
}

// embedChunks fills Embedding for every chunk it can. Chunks whose embedding
// fails keep a nil Embedding and are skipped by the caller.
func (s *IngestionService) embedChunks(ctx context.Context, chunks []domain.Chunk) {
	var wg sync.WaitGroup
	for i := range chunks {
		chunk := &chunks[i]
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			embedding, err := s.embed(ctx, chunk.Content)
			if err != nil {
				logger.Warn("Error processing chunk %d: %v", chunk.Index, err)
				return
			}
			chunk.Embedding = embedding
		})
		if err != nil {
			wg.Done()
			logger.Warn("Failed to schedule chunk %d: %v", chunk.Index, err)
		}
	}
	wg.Wait()
}

func (s *IngestionService) embed(ctx context.Context, text string) ([]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	embedding, err := s.embedder.Embed(ctx, text, driven.TaskRetrievalDocument)
	if err != nil {
		var perr *domain.ProviderError
		if s.limiter != nil && errors.As(err, &perr) && perr.Status == http.StatusTooManyRequests {
			s.limiter.RecordRateLimitError(perr.RetryAfter)
		}
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embed chunk: %w", domain.ErrMalformedOutput)
	}
	return embedding, nil
}
