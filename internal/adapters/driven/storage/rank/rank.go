// Package rank scores chunks for hybrid queries in process. It backs the
// storage drivers that have no native vector or full-text search.
package rank

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

var tokenPattern = regexp.MustCompile(`\w+`)

// ParseQuery splits a "a | b | c" keyword query into lower-cased terms.
func ParseQuery(text string) []string {
	var terms []string
	for _, t := range strings.Split(text, "|") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TextRank is the fraction of terms that occur as whole words in content.
func TextRank(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	words := make(map[string]struct{})
	for _, w := range tokenPattern.FindAllString(strings.ToLower(content), -1) {
		words[w] = struct{}{}
	}
	matched := 0
	for _, t := range terms {
		if _, ok := words[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// Matches reports whether c passes the query's report type and category filters.
func Matches(q domain.HybridQuery, c *domain.Chunk) bool {
	if q.ReportType != "" && c.ReportType != q.ReportType {
		return false
	}
	if q.Category != "" && c.ContentCategory != q.Category {
		return false
	}
	return true
}

// Rank filters, scores and orders chunks by combined score, highest first,
// and keeps at most q.MatchCount of them.
func Rank(q domain.HybridQuery, chunks []domain.Chunk) []domain.RetrievedChunk {
	terms := ParseQuery(q.Text)
	limit := q.MatchCount
	if limit <= 0 {
		limit = domain.DefaultMatchCount
	}

	scored := make([]domain.RetrievedChunk, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if !Matches(q, c) {
			continue
		}
		sim := Cosine(q.Embedding, c.Embedding)
		tr := TextRank(c.Content, terms)
		scored = append(scored, domain.RetrievedChunk{
			Chunk:         *c,
			Similarity:    sim,
			TextRank:      tr,
			CombinedScore: q.VectorWeight*sim + q.TextWeight*tr,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CombinedScore > scored[j].CombinedScore
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
