// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// TaskType tells the embedding provider what the vector will be used for.
// Document and query vectors are produced with different intents but live
// in the same similarity space.
type TaskType string

const (
	// TaskRetrievalDocument embeds text for storage.
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"

	// TaskRetrievalQuery embeds text for searching.
	TaskRetrievalQuery TaskType = "RETRIEVAL_QUERY"
)

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, retrieval is skipped.
//
// A failed call returns a nil vector and an error. Callers treat the error as
// "proceed without this capability"; implementations never retry.
//
// Implementations:
//   - Gemini (text-embedding-004)
//   - OpenAI-compatible /embeddings
//   - Ollama (nomic-embed-text)
//   - Redis cache decorator
//   - Deterministic fake for tests
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
