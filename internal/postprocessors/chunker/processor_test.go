package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
		if p.OverlapWords() != 40 {
			t.Errorf("expected 40 overlap words, got %d", p.OverlapWords())
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap != 25 {
			t.Errorf("expected overlap clamped to 25, got %d", p.overlap)
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", New().Name())
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "No punctuation here", []string{"No punctuation here"}},
		{"mixed terminals", "One. Two!  Three?\nFour", []string{"One.", "Two!", "Three?", "Four"}},
		{"no space after period", "Dose 2.5 mg. Next", []string{"Dose 2.5 mg.", "Next"}},
		{"trailing whitespace", "Done.  ", []string{"Done."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d sentences, got %d: %q", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestSplit_EmptyContent(t *testing.T) {
	if segs := New().Split("   "); len(segs) != 0 {
		t.Errorf("expected no segments for blank content, got %d", len(segs))
	}
}

func TestSplit_SmallContent(t *testing.T) {
	segs := New().Split("A short note. It fits.")
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Text != "A short note. It fits." {
		t.Errorf("unexpected text %q", segs[0].Text)
	}
	if segs[0].Index != 0 {
		t.Errorf("expected index 0, got %d", segs[0].Index)
	}
}

func TestSplit_OverlapSeedsNextChunk(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(10))
	text := "Alpha beta gamma delta. Epsilon zeta eta theta. Iota kappa lambda mu."

	segs := p.Split(text)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Text != "Alpha beta gamma delta. Epsilon zeta eta theta." {
		t.Errorf("unexpected first segment %q", segs[0].Text)
	}
	if segs[1].Text != "eta theta. Iota kappa lambda mu." {
		t.Errorf("unexpected second segment %q", segs[1].Text)
	}
}

func TestSplit_IndexContiguityAndWordOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("Contrast enhanced imaging shows the liver and spleen clearly. ")
	}

	p := New(WithChunkSize(300), WithOverlap(50))
	segs := p.Split(b.String())
	if len(segs) < 10 {
		t.Fatalf("expected many segments, got %d", len(segs))
	}

	for i, seg := range segs {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if seg.Text != strings.TrimSpace(seg.Text) {
			t.Errorf("segment %d is not trimmed", i)
		}
		if i == 0 {
			continue
		}
		prev := strings.Fields(segs[i-1].Text)
		tail := strings.Join(prev[len(prev)-p.OverlapWords():], " ")
		if !strings.HasPrefix(seg.Text, tail+" ") {
			t.Errorf("segment %d does not start with the last %d words of segment %d", i, p.OverlapWords(), i-1)
		}
	}
}

func TestSplit_SmallOverlapCarriesOneWord(t *testing.T) {
	for _, overlap := range []int{1, 4} {
		p := New(WithChunkSize(20), WithOverlap(overlap))
		if p.OverlapWords() != 1 {
			t.Fatalf("overlap %d: expected 1 overlap word, got %d", overlap, p.OverlapWords())
		}

		segs := p.Split("First sentence here. Second sentence here.")
		if len(segs) != 2 {
			t.Fatalf("overlap %d: expected 2 segments, got %d", overlap, len(segs))
		}
		if segs[1].Text != "here. Second sentence here." {
			t.Errorf("overlap %d: expected one-word seed, got %q", overlap, segs[1].Text)
		}
	}
}

func TestSplit_ZeroOverlapHasNoSeed(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(0))
	segs := p.Split("First sentence here. Second sentence here.")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[1].Text != "Second sentence here." {
		t.Errorf("expected no overlap seed, got %q", segs[1].Text)
	}
}

func TestSplit_LongSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("word ", 100) + "end."
	segs := New(WithChunkSize(50), WithOverlap(10)).Split(long)
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Text != strings.TrimSpace(long) {
		t.Error("long sentence should be emitted unchanged")
	}
}

func TestSplit_CountsRunes(t *testing.T) {
	// 10 runes each but 20 bytes.
	s := "ééééééééé."
	if utf8.RuneCountInString(s) != 10 {
		t.Fatalf("fixture should be 10 runes")
	}
	segs := New(WithChunkSize(21), WithOverlap(0)).Split(s + " " + s)
	if len(segs) != 1 {
		t.Errorf("expected rune counting to keep both sentences together, got %d segments", len(segs))
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(10))
	doc := &domain.Document{
		ID:              "doc-1",
		Content:         "Alpha beta gamma delta. Epsilon zeta eta theta. Iota kappa lambda mu.",
		Source:          "RSNA",
		ReportType:      "ct",
		ContentCategory: "anatomy",
	}

	chunks, err := p.Process(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	seen := make(map[string]bool)
	for i, c := range chunks {
		if c.ID == "" || seen[c.ID] {
			t.Errorf("chunk %d has empty or duplicate id", i)
		}
		seen[c.ID] = true
		if c.DocumentID != "doc-1" || c.Index != i {
			t.Errorf("chunk %d has document %q index %d", i, c.DocumentID, c.Index)
		}
		if c.Source != "RSNA" || c.ReportType != "ct" || c.ContentCategory != "anatomy" {
			t.Errorf("chunk %d did not inherit document labels", i)
		}
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	chunks, err := New().Process(context.Background(), &domain.Document{ID: "d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected nil chunks, got %d", len(chunks))
	}
}
