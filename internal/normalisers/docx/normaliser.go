// Package docx normalises Word (OOXML) guideline documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	documentPart  = "word/document.xml"
	corePropsPart = "docProps/core.xml"
	maxPartSize   = 32 << 20
)

// Normaliser handles DOCX files.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the handled file extensions.
func (n *Normaliser) Extensions() []string {
	return []string{".docx"}
}

// Normalise extracts paragraph text from the main document part. The title
// comes from the core properties when present.
func (n *Normaliser) Normalise(_ context.Context, file domain.SourceFile) (*domain.DocumentInput, error) {
	reader, err := zip.NewReader(bytes.NewReader(file.Content), int64(len(file.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive", domain.ErrInvalidInput)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: %s missing", domain.ErrInvalidInput, documentPart)
	}

	title := coreTitle(reader)
	if title == "" {
		title = file.FallbackTitle()
	}

	return &domain.DocumentInput{
		Title:    title,
		Content:  paragraphText(body),
		Metadata: map[string]any{"format": "docx", "file": file.Path},
	}, nil
}

// readPart returns the named part, or nil when the archive lacks it.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s", domain.ErrInvalidInput, name)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s", domain.ErrInvalidInput, name)
		}
		return data, nil
	}
	return nil, nil
}

type document struct {
	Paragraphs []paragraph `xml:"body>p"`
}

type paragraph struct {
	Runs []struct {
		Text []string `xml:"t"`
	} `xml:"r"`
}

// paragraphText joins the text runs of each paragraph, one paragraph per line.
func paragraphText(content []byte) string {
	var doc document
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}

	lines := make([]string, 0, len(doc.Paragraphs))
	for _, p := range doc.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t)
			}
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func coreTitle(reader *zip.Reader) string {
	data, err := readPart(reader, corePropsPart)
	if err != nil || data == nil {
		return ""
	}
	var core struct {
		Title string `xml:"title"`
	}
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
