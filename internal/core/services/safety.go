package services

import (
	"strings"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// unsafeCategories are never shown to any audience.
var unsafeCategories = []string{"diagnosis", "treatment", "prescription", "medication"}

// clinicianOnlyCategories are hidden from patients.
var clinicianOnlyCategories = []string{"clinical_protocol", "research"}

// FilterSafe drops chunks whose content category is unsuitable for mode and
// projects the survivors to SafeContext. Categories match by case-insensitive
// substring, so "drug_treatment" is excluded as well as "treatment".
func FilterSafe(chunks []domain.RetrievedChunk, mode domain.Mode) []domain.SafeContext {
	safe := make([]domain.SafeContext, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		category := strings.ToLower(c.ContentCategory)
		if containsAny(category, unsafeCategories) {
			continue
		}
		if mode == domain.ModePatient && containsAny(category, clinicianOnlyCategories) {
			continue
		}
		safe = append(safe, domain.SafeContext{
			Content:       c.Content,
			Source:        c.Source,
			DocumentTitle: c.DocumentTitle,
			Category:      c.ContentCategory,
		})
	}
	return safe
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
