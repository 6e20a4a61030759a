package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	h1Tag         = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	invisible     = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg|nav|footer)\b[^>]*>.*?</(script|style|noscript|head|svg|nav|footer)>`)
	comments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockBoundary = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	lineBreaks    = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	spaceRuns     = regexp.MustCompile(`[ \t\f\v]+`)
)

// Normaliser handles HTML files.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the handled file extensions.
func (n *Normaliser) Extensions() []string {
	return []string{".html", ".htm"}
}

// Normalise extracts readable text. The title comes from <title>, then the
// first <h1>, then the file name.
func (n *Normaliser) Normalise(_ context.Context, file domain.SourceFile) (*domain.DocumentInput, error) {
	raw := string(file.Content)

	title := firstMatch(titleTag, raw)
	if title == "" {
		title = firstMatch(h1Tag, raw)
	}
	if title == "" {
		title = file.FallbackTitle()
	}

	return &domain.DocumentInput{
		Title:    title,
		Content:  Strip(raw),
		Metadata: map[string]any{"format": "html", "file": file.Path},
	}, nil
}

func firstMatch(re *regexp.Regexp, content string) string {
	m := re.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(anyTag.ReplaceAllString(m[1], "")))
}

// Strip removes markup and returns one line per non-empty text block.
func Strip(content string) string {
	content = invisible.ReplaceAllString(content, "")
	content = comments.ReplaceAllString(content, "")
	content = blockBoundary.ReplaceAllString(content, "\n")
	content = lineBreaks.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, "\u00a0", " ")
	content = spaceRuns.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
