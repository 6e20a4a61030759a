package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockRanker implements driven.HybridRanker and records every query.
type mockRanker struct {
	mu        sync.Mutex
	queries   []domain.HybridQuery
	filtered  []domain.RetrievedChunk
	all       []domain.RetrievedChunk
	searchErr error
	titles    map[string]string
	titlesErr error
}

func (m *mockRanker) HybridSearch(_ context.Context, q domain.HybridQuery) ([]domain.RetrievedChunk, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	src := m.all
	if q.ReportType != "" {
		src = m.filtered
	}
	return append([]domain.RetrievedChunk(nil), src...), nil
}

func (m *mockRanker) DocumentTitles(_ context.Context, ids []string) (map[string]string, error) {
	if m.titlesErr != nil {
		return nil, m.titlesErr
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if t, ok := m.titles[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	mu    sync.Mutex
	err   error
	tasks []driven.TaskType
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string, task driven.TaskType) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embedding"
}

// mockKnowledgeStore implements driven.KnowledgeStore with injectable failures.
type mockKnowledgeStore struct {
	mu        sync.Mutex
	docs      []domain.Document
	chunks    []domain.Chunk
	saveErr   error
	chunkErr  error
	failIndex int
}

func (m *mockKnowledgeStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs = append(m.docs, *doc)
	return nil
}

func (m *mockKnowledgeStore) SaveChunk(_ context.Context, chunk *domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunkErr != nil && chunk.Index == m.failIndex {
		return m.chunkErr
	}
	m.chunks = append(m.chunks, *chunk)
	return nil
}

func (m *mockKnowledgeStore) Ping(_ context.Context) error {
	return nil
}

func retrieved(docID, content, category string) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{
			ID:              docID + "-chunk",
			DocumentID:      docID,
			Content:         content,
			Source:          "RSNA",
			ContentCategory: category,
		},
	}
}
