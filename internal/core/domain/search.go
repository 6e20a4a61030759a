package domain

// Default hybrid ranking parameters.
const (
	DefaultMatchCount   = 10
	DefaultVectorWeight = 0.7
	DefaultTextWeight   = 0.3

	// DefaultDocumentTitle is used when title enrichment misses a document.
	DefaultDocumentTitle = "Medical Guidelines"
)

// HybridQuery is a single combined vector + lexical ranking request.
type HybridQuery struct {
	// Embedding is the RETRIEVAL_QUERY vector.
	Embedding []float32

	// Text is the lexical query: keywords joined by " | ".
	Text string

	// ReportType restricts candidates to one report type. Empty means unfiltered.
	ReportType string

	// Category restricts candidates to one content category. Empty means unfiltered.
	Category string

	// MatchCount caps the number of returned candidates.
	MatchCount int

	// VectorWeight and TextWeight weight the two scores in CombinedScore.
	VectorWeight float64
	TextWeight   float64
}

// Unfiltered returns a copy of q without the report type filter.
func (q HybridQuery) Unfiltered() HybridQuery {
	q.ReportType = ""
	return q
}
