// Package normalisers turns guideline files of various formats into
// ingestion input.
package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/normalisers/docx"
	"github.com/custodia-labs/medlens/internal/normalisers/html"
	"github.com/custodia-labs/medlens/internal/normalisers/markdown"
	"github.com/custodia-labs/medlens/internal/normalisers/plaintext"
)

// Registry maps file extensions to normalisers.
type Registry struct {
	byExt map[string]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Normaliser)}
}

// Default returns a registry with every built-in normaliser.
func Default() *Registry {
	r := NewRegistry()
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(plaintext.New())
	return r
}

// Register adds n for each of its extensions, replacing earlier entries.
func (r *Registry) Register(n driven.Normaliser) {
	for _, ext := range n.Extensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Normalise converts file with the normaliser registered for its extension.
func (r *Registry) Normalise(ctx context.Context, file domain.SourceFile) (*domain.DocumentInput, error) {
	ext := strings.ToLower(filepath.Ext(file.Path))
	n, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no normaliser for %q files", domain.ErrInvalidInput, ext)
	}
	doc, err := n.Normalise(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("normalising %s: %w", file.Path, err)
	}
	return doc, nil
}
