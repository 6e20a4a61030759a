// Package chunker splits guideline text into sentence-aligned, overlapping chunks.
package chunker

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap budget in characters.
const DefaultChunkOverlap = 200

// charsPerWord converts the character overlap budget into a word count.
const charsPerWord = 5

// Segment is one chunk of text with its position in the document.
type Segment struct {
	Text  string
	Index int
}

// Processor splits document content into sentence-aligned chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap budget between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// OverlapWords is the number of trailing words carried into the next chunk.
// Any positive overlap budget carries at least one word.
func (p *Processor) OverlapWords() int {
	if p.overlap <= 0 {
		return 0
	}
	return max(1, p.overlap/charsPerWord)
}

// Split breaks text into segments.
//
// Sentences are accumulated into a buffer joined by single spaces. When the
// next sentence would push the buffer past the chunk size, the buffer is
// emitted and a new one is seeded with its trailing overlap words followed by
// that sentence. A single sentence longer than the chunk size is never split.
func (p *Processor) Split(text string) []Segment {
	var segments []Segment
	var buf strings.Builder
	bufLen := 0
	overlapWords := p.OverlapWords()

	for _, sentence := range splitSentences(text) {
		sentenceLen := utf8.RuneCountInString(sentence)

		if bufLen+sentenceLen > p.chunkSize && bufLen > 0 {
			closed := buf.String()
			segments = append(segments, Segment{Text: strings.TrimSpace(closed), Index: len(segments)})

			buf.Reset()
			if seed := tailWords(closed, overlapWords); seed != "" {
				buf.WriteString(seed)
				buf.WriteByte(' ')
			}
			buf.WriteString(sentence)
			bufLen = utf8.RuneCountInString(buf.String())
			continue
		}

		if bufLen > 0 {
			buf.WriteByte(' ')
			bufLen++
		}
		buf.WriteString(sentence)
		bufLen += sentenceLen
	}

	if last := strings.TrimSpace(buf.String()); last != "" {
		segments = append(segments, Segment{Text: last, Index: len(segments)})
	}

	return segments
}

// Process splits the document content into chunks that carry the document's
// source, report type and content category.
func (p *Processor) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	segments := p.Split(doc.Content)
	if len(segments) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(segments))
	for _, seg := range segments {
		chunks = append(chunks, domain.Chunk{
			ID:              uuid.New().String(),
			DocumentID:      doc.ID,
			Content:         seg.Text,
			Index:           seg.Index,
			Source:          doc.Source,
			ReportType:      doc.ReportType,
			ContentCategory: doc.ContentCategory,
		})
	}

	return chunks, nil
}

// splitSentences splits after '.', '!' or '?' when followed by whitespace.
// The whitespace run is consumed; the punctuation stays with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		if !isTerminal(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := string(runes[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}

	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// tailWords returns the last n whitespace-separated words of s.
func tailWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
