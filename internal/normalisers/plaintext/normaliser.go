// Package plaintext normalises plain text guideline files.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text files.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the handled file extensions.
func (n *Normaliser) Extensions() []string {
	return []string{".txt", ".text"}
}

// Normalise returns the file content with line endings unified. Content that
// is not valid UTF-8 is rejected.
func (n *Normaliser) Normalise(_ context.Context, file domain.SourceFile) (*domain.DocumentInput, error) {
	if !utf8.Valid(file.Content) {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ReplaceAll(string(file.Content), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	return &domain.DocumentInput{
		Title:    file.FallbackTitle(),
		Content:  strings.TrimSpace(content),
		Metadata: map[string]any{"format": "plaintext", "file": file.Path},
	}, nil
}
