package services

import (
	"strings"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// BuildContext renders safe contexts as the grounding block of a prompt.
// It returns "" when there is nothing to ground on.
func BuildContext(contexts []domain.SafeContext) string {
	if len(contexts) == 0 {
		return ""
	}

	parts := make([]string, len(contexts))
	for i, c := range contexts {
		parts[i] = "[" + c.Source + " – " + c.DocumentTitle + "]\n" + c.Content
	}

	return "CONTEXT:\n---\n" + strings.Join(parts, "\n\n") + "\n---"
}

// ExtractReferences returns "[source] title" for each context, deduplicated
// in first-seen order. The result is never nil.
func ExtractReferences(contexts []domain.SafeContext) []string {
	refs := make([]string, 0, len(contexts))
	seen := make(map[string]struct{}, len(contexts))
	for _, c := range contexts {
		ref := "[" + c.Source + "] " + c.DocumentTitle
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
