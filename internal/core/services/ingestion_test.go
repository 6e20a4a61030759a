package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medlens/internal/adapters/driven/fake"
	"github.com/custodia-labs/medlens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/postprocessors/chunker"
)

// recordingLimiter implements driven.RateLimiter for testing.
type recordingLimiter struct {
	mu      sync.Mutex
	waits   int
	backoff []time.Duration
}

func (l *recordingLimiter) Wait(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waits++
	return nil
}

func (l *recordingLimiter) RecordRateLimitError(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = append(l.backoff, d)
}

func guideline(title string) domain.DocumentInput {
	return domain.DocumentInput{
		Title:           title,
		Content:         "Chest radiographs show the lungs and heart. The ribs are visible as curved white lines. Air appears dark on the film.",
		Source:          "RSNA",
		ReportType:      "xray",
		ContentCategory: "anatomy",
	}
}

func newTestIngestionService(
	t *testing.T, store driven.KnowledgeStore, embedder driven.EmbeddingService, limiter driven.RateLimiter,
) *IngestionService {
	t.Helper()
	svc, err := NewIngestionService(store, embedder, chunker.New(chunker.WithChunkSize(60), chunker.WithOverlap(10)), limiter, 2)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestIngest_NoEmbedder(t *testing.T) {
	svc := newTestIngestionService(t, &mockKnowledgeStore{}, nil, nil)

	_, err := svc.Ingest(context.Background(), []domain.DocumentInput{guideline("A")})

	assert.True(t, errors.Is(err, domain.ErrEmbeddingUnavailable))
}

func TestIngest_EmptyBatch(t *testing.T) {
	svc := newTestIngestionService(t, &mockKnowledgeStore{}, &mockEmbeddingService{}, nil)

	_, err := svc.Ingest(context.Background(), nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	untitled := guideline("")
	_, err = svc.Ingest(context.Background(), []domain.DocumentInput{untitled, guideline("B")})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestIngest_BatchWithOneInvalid(t *testing.T) {
	store := &mockKnowledgeStore{}
	svc := newTestIngestionService(t, store, &mockEmbeddingService{}, nil)

	invalid := guideline("Missing Source")
	invalid.Source = ""

	summary, err := svc.Ingest(context.Background(), []domain.DocumentInput{guideline("Chest Basics"), invalid})
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	ok, bad := summary.Results[0], summary.Results[1]

	assert.Empty(t, ok.Error)
	assert.NotEmpty(t, ok.DocumentID)
	assert.Positive(t, ok.ChunksCreated)

	assert.Equal(t, "Missing Source", bad.Title)
	assert.Equal(t, MessageMissingFields, bad.Error)
	assert.Equal(t, "", bad.DocumentID)
	assert.Equal(t, 0, bad.ChunksCreated)

	assert.True(t, summary.Success)
	assert.True(t, strings.HasPrefix(summary.Message, "Processed 1/2 documents with "))
	assert.Len(t, store.docs, 1)
}

func TestIngest_UntitledLaterDocumentIsUnknown(t *testing.T) {
	svc := newTestIngestionService(t, &mockKnowledgeStore{}, &mockEmbeddingService{}, nil)

	summary, err := svc.Ingest(context.Background(), []domain.DocumentInput{guideline("A"), {Content: "x"}})
	require.NoError(t, err)

	assert.Equal(t, UnknownTitle, summary.Results[1].Title)
}

func TestIngest_ChunksAreContiguousAndEmbedded(t *testing.T) {
	store := &mockKnowledgeStore{}
	limiter := &recordingLimiter{}
	embedder := &mockEmbeddingService{}
	svc := newTestIngestionService(t, store, embedder, limiter)

	summary, err := svc.Ingest(context.Background(), []domain.DocumentInput{guideline("Chest Basics")})
	require.NoError(t, err)

	n := summary.Results[0].ChunksCreated
	require.Greater(t, n, 1)
	require.Len(t, store.chunks, n)
	for i, c := range store.chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, summary.Results[0].DocumentID, c.DocumentID)
		assert.NotEmpty(t, c.Embedding)
		assert.Equal(t, "xray", c.ReportType)
	}
	assert.Equal(t, n, limiter.waits)
	for _, task := range embedder.tasks {
		assert.Equal(t, driven.TaskRetrievalDocument, task)
	}
}

func TestIngest_DocumentPersistenceFailure(t *testing.T) {
	store := &mockKnowledgeStore{saveErr: errors.New("duplicate key")}
	svc := newTestIngestionService(t, store, &mockEmbeddingService{}, nil)

	summary, err := svc.Ingest(context.Background(), []domain.DocumentInput{guideline("A")})
	require.NoError(t, err)

	assert.Equal(t, "Failed to insert document: duplicate key", summary.Results[0].Error)
	assert.Equal(t, "Processed 0/1 documents with 0 total chunks", summary.Message)
}

func TestIngest_ChunkFailuresAreSkipped(t *testing.T) {
	store := &mockKnowledgeStore{chunkErr: errors.New("disk full"), failIndex: 0}
	svc := newTestIngestionService(t, store, &mockEmbeddingService{}, nil)

	summary, err := svc.Ingest(context.Background(), []domain.DocumentInput{guideline("A")})
	require.NoError(t, err)

	r := summary.Results[0]
	assert.Empty(t, r.Error)
	assert.Equal(t, len(store.chunks), r.ChunksCreated)
	assert.Equal(t, 1, r.ChunksFailed)
	for _, c := range store.chunks {
		assert.NotEqual(t, 0, c.Index)
	}
}

func TestIngest_RateLimitFeedsBackoff(t *testing.T) {
	limiter := &recordingLimiter{}
	embedder := &mockEmbeddingService{err: &domain.ProviderError{Provider: "gemini", Status: 429, RetryAfter: 3 * time.Second}}
	svc := newTestIngestionService(t, &mockKnowledgeStore{}, embedder, limiter)

	summary, err := svc.Ingest(context.Background(), []domain.DocumentInput{guideline("A")})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Results[0].ChunksCreated)
	assert.Equal(t, 3, summary.Results[0].ChunksFailed)
	assert.Empty(t, summary.Results[0].Error)
	require.NotEmpty(t, limiter.backoff)
	assert.Equal(t, 3*time.Second, limiter.backoff[0])
}

// cancellingEmbedder succeeds once, cancels the request and then fails like
// a provider call whose context has expired.
type cancellingEmbedder struct {
	mu     sync.Mutex
	calls  int
	cancel context.CancelFunc
}

func (e *cancellingEmbedder) Embed(ctx context.Context, _ string, _ driven.TaskType) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls == 1 {
		e.cancel()
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return nil, ctx.Err()
}

func (e *cancellingEmbedder) ModelName() string {
	return "cancelling"
}

func TestIngest_InterruptedDocumentIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &mockKnowledgeStore{}
	svc := newTestIngestionService(t, store, &cancellingEmbedder{cancel: cancel}, nil)

	summary, err := svc.Ingest(ctx, []domain.DocumentInput{guideline("A")})
	require.NoError(t, err)

	r := summary.Results[0]
	assert.Equal(t, 1, r.ChunksCreated)
	assert.Equal(t, 2, r.ChunksFailed)
	assert.Contains(t, r.Error, "Ingestion interrupted after 1/3 chunks")
	assert.True(t, r.Failed())
	assert.Equal(t, "Processed 0/1 documents with 1 total chunks", summary.Message)
}

func TestIngestThenSearch_RoundTrip(t *testing.T) {
	store := memory.NewKnowledgeStore()
	embedder := fake.NewEmbedder(0)
	ingest := newTestIngestionService(t, store, embedder, nil)

	docs := []domain.DocumentInput{
		guideline("Chest Basics"),
		{
			Title:           "MRI Safety",
			Content:         "Magnetic resonance scanners use strong magnets. Metal implants must be screened before entry.",
			Source:          "ACR",
			ReportType:      "mri",
			ContentCategory: "guidelines",
		},
	}
	summary, err := ingest.Ingest(context.Background(), docs)
	require.NoError(t, err)
	mriID := summary.Results[1].DocumentID
	require.NotEmpty(t, mriID)

	search := NewSearchService(NewRetriever(embedder, NewHybridSearchEngine(store, DefaultSearchOptions()), 0))
	got, err := search.Search(context.Background(), "Metal implants must be screened before entry", domain.ReportTypeMRI, domain.ModePatient)
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, "MRI Safety", got[0].DocumentTitle)
	assert.Equal(t, "ACR", got[0].Source)
}
