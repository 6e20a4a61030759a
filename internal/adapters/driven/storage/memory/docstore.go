// Package memory provides an in-memory knowledge store for tests and offline runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/medlens/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interfaces.
var (
	_ driven.KnowledgeStore = (*KnowledgeStore)(nil)
	_ driven.HybridRanker   = (*KnowledgeStore)(nil)
)

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore and
// driven.HybridRanker.
type KnowledgeStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewKnowledgeStore creates a new in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores a document. Documents are immutable, so saving an
// existing ID fails.
func (s *KnowledgeStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; ok {
		return fmt.Errorf("%w: document %s already exists", domain.ErrInvalidInput, doc.ID)
	}
	stored := *doc
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.documents[doc.ID] = stored
	return nil
}

// SaveChunk stores a chunk for an existing document.
func (s *KnowledgeStore) SaveChunk(_ context.Context, chunk *domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[chunk.DocumentID]; !ok {
		return fmt.Errorf("document %s: %w", chunk.DocumentID, domain.ErrNotFound)
	}
	c := *chunk
	c.Embedding = append([]float32(nil), chunk.Embedding...)
	s.chunks[chunk.DocumentID] = append(s.chunks[chunk.DocumentID], c)
	return nil
}

// Ping always succeeds.
func (s *KnowledgeStore) Ping(_ context.Context) error {
	return nil
}

// GetDocument retrieves a document by ID.
func (s *KnowledgeStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunks retrieves the chunks of a document ordered by index.
func (s *KnowledgeStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// HybridSearch scores every stored chunk in process.
func (s *KnowledgeStore) HybridSearch(_ context.Context, q domain.HybridQuery) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	all := make([]domain.Chunk, 0)
	for _, chunks := range s.chunks {
		all = append(all, chunks...)
	}
	s.mu.RUnlock()

	// Map iteration order is random; fix it so ties rank deterministically.
	sort.Slice(all, func(i, j int) bool {
		if all[i].DocumentID != all[j].DocumentID {
			return all[i].DocumentID < all[j].DocumentID
		}
		return all[i].Index < all[j].Index
	})

	return rank.Rank(q, all), nil
}

// DocumentTitles returns titles for the known IDs.
func (s *KnowledgeStore) DocumentTitles(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make(map[string]string, len(ids))
	for _, id := range ids {
		if doc, ok := s.documents[id]; ok {
			titles[id] = doc.Title
		}
	}
	return titles, nil
}
