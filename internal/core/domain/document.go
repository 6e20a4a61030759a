package domain

import "time"

// Document is a guideline document stored in the knowledge base.
// It is created by ingestion and never modified afterwards.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title shown in references.
	Title string

	// Content is the full text before chunking.
	Content string

	// Source names the publishing body (e.g. "RSNA", "WHO").
	Source string

	// ReportType is the imaging category the document applies to.
	// Ingested documents may carry labels outside the classifiable set ("general").
	ReportType string

	// ContentCategory classifies the kind of content ("anatomy", "guidelines", ...).
	// The safety filter keys on it.
	ContentCategory string

	// Metadata contains arbitrary key-value pairs supplied at ingestion.
	Metadata map[string]any

	// CreatedAt is when the document was stored.
	CreatedAt time.Time
}

// Chunk is a retrievable slice of a document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Content is the chunk text.
	Content string

	// Index is the zero-based position within the document.
	Index int

	// Embedding is the RETRIEVAL_DOCUMENT vector for the content.
	Embedding []float32

	// Source, ReportType and ContentCategory are copied from the owning document
	// so ranking and filtering never need a join.
	Source          string
	ReportType      string
	ContentCategory string
}

// RetrievedChunk is a chunk scored by a hybrid ranking request.
type RetrievedChunk struct {
	Chunk

	// DocumentTitle is filled in by title enrichment.
	DocumentTitle string

	// Similarity is the vector cosine similarity.
	Similarity float64

	// TextRank is the lexical match rank.
	TextRank float64

	// CombinedScore is the weighted sum used for ordering.
	CombinedScore float64
}

// SafeContext is the projection of a retrieved chunk that survived the safety filter.
// It is the only form of retrieved content that reaches a generation prompt.
type SafeContext struct {
	Content       string `json:"content"`
	Source        string `json:"source"`
	DocumentTitle string `json:"document_title"`
	Category      string `json:"category"`
}
