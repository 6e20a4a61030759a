package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DocumentInput is a document submitted for ingestion.
type DocumentInput struct {
	Title           string         `json:"title"`
	Content         string         `json:"content"`
	Source          string         `json:"source"`
	ReportType      string         `json:"reportType"`
	ContentCategory string         `json:"contentCategory"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Validate reports ErrInvalidInput if any required field is empty.
func (d DocumentInput) Validate() error {
	if d.Title == "" || d.Content == "" || d.Source == "" || d.ReportType == "" || d.ContentCategory == "" {
		return fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	}
	return nil
}

// Document converts the input into a Document with the given ID.
func (d DocumentInput) Document(id string) Document {
	metadata := d.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return Document{
		ID:              id,
		Title:           d.Title,
		Content:         d.Content,
		Source:          d.Source,
		ReportType:      d.ReportType,
		ContentCategory: d.ContentCategory,
		Metadata:        metadata,
	}
}

// IngestResult is the per-document outcome of an ingestion batch.
type IngestResult struct {
	Title         string `json:"title"`
	DocumentID    string `json:"documentId"`
	ChunksCreated int    `json:"chunksCreated"`
	ChunksFailed  int    `json:"chunksFailed,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Failed reports whether the document was rejected, not stored, or
// interrupted before all of its chunks were processed.
func (r IngestResult) Failed() bool {
	return r.Error != ""
}

// IngestSummary is the outcome of an ingestion batch.
type IngestSummary struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Results []IngestResult `json:"results"`
}

// NewIngestSummary totals per-document results into a summary.
func NewIngestSummary(results []IngestResult) IngestSummary {
	succeeded, chunks := 0, 0
	for _, r := range results {
		if !r.Failed() {
			succeeded++
		}
		chunks += r.ChunksCreated
	}
	if results == nil {
		results = []IngestResult{}
	}
	return IngestSummary{
		Success: true,
		Message: fmt.Sprintf("Processed %d/%d documents with %d total chunks", succeeded, len(results), chunks),
		Results: results,
	}
}

// SourceFile is a guideline file read from disk before normalisation.
type SourceFile struct {
	Path    string
	Content []byte
}

// FallbackTitle derives a readable title from the file name.
func (f SourceFile) FallbackTitle() string {
	name := filepath.Base(f.Path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.TrimSpace(name)
}
