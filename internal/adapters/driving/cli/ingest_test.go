package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

const singleDocJSON = `{
  "title": "Knee MRI",
  "content": "The meniscus is a C-shaped cartilage. It cushions the knee joint.",
  "source": "ACR",
  "reportType": "mri",
  "contentCategory": "anatomy"
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDecodeDocuments(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		titles []string
	}{
		{name: "single document", input: singleDocJSON, titles: []string{"Knee MRI"}},
		{name: "array", input: `[{"title": "A"}, {"title": "B"}]`, titles: []string{"A", "B"}},
		{name: "documents wrapper", input: `{"documents": [{"title": "C"}]}`, titles: []string{"C"}},
		{name: "empty wrapper", input: `{"documents": []}`, titles: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := decodeDocuments(strings.NewReader(tt.input))
			require.NoError(t, err)

			titles := make([]string, 0, len(docs))
			for _, d := range docs {
				titles = append(titles, d.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestDecodeDocuments_Invalid(t *testing.T) {
	_, err := decodeDocuments(strings.NewReader("   "))
	assert.Error(t, err)

	_, err = decodeDocuments(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestIngestCmd_RequiresFileOrWatch(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--watch")
}

func TestIngestCmd_File(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTemp(t, "knee.json", singleDocJSON)

	out, err := execute(t, "ingest", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Processed 1/1 documents")
	assert.Contains(t, out, "Knee MRI")
}

func TestIngestCmd_JSONSummary(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTemp(t, "batch.json", `[`+singleDocJSON+`, {"title": "Incomplete"}]`)

	out, err := execute(t, "ingest", "--json", path)
	require.NoError(t, err)

	var summary domain.IngestSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.True(t, summary.Success)
	require.Len(t, summary.Results, 2)
	assert.Empty(t, summary.Results[0].Error)
	assert.Positive(t, summary.Results[0].ChunksCreated)
	assert.Equal(t, "Missing required fields", summary.Results[1].Error)
}

func TestIngestCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest", filepath.Join(t.TempDir(), "missing.json"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "opening")
}

func TestIngestCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestionService = mockIngestionServiceError{}
	path := writeTemp(t, "knee.json", singleDocJSON)

	_, err := execute(t, "ingest", path)

	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestShouldIngest(t *testing.T) {
	dir := t.TempDir()
	visible := filepath.Join(dir, "doc.json")
	hidden := filepath.Join(dir, ".doc.json")
	text := filepath.Join(dir, "notes.csv")
	markdown := filepath.Join(dir, "guide.md")
	sub := filepath.Join(dir, "nested.json")
	for _, p := range []string{visible, hidden, text, markdown} {
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o600))
	}
	require.NoError(t, os.Mkdir(sub, 0o755))

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "create json", event: fsnotify.Event{Name: visible, Op: fsnotify.Create}, want: true},
		{name: "write json", event: fsnotify.Event{Name: visible, Op: fsnotify.Write}, want: true},
		{name: "chmod json", event: fsnotify.Event{Name: visible, Op: fsnotify.Chmod}, want: false},
		{name: "remove json", event: fsnotify.Event{Name: filepath.Join(dir, "gone.json"), Op: fsnotify.Remove}, want: false},
		{name: "hidden file", event: fsnotify.Event{Name: hidden, Op: fsnotify.Create}, want: false},
		{name: "markdown", event: fsnotify.Event{Name: markdown, Op: fsnotify.Create}, want: true},
		{name: "other extension", event: fsnotify.Event{Name: text, Op: fsnotify.Create}, want: false},
		{name: "directory", event: fsnotify.Event{Name: sub, Op: fsnotify.Create}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIngest(tt.event))
		})
	}
}

func TestWatchDirectory_StopsOnCancel(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := watchDirectory(ctx, ingestCmd, t.TempDir())

	assert.NoError(t, err)
}

func TestWatchDirectory_MissingDir(t *testing.T) {
	err := watchDirectory(context.Background(), ingestCmd, filepath.Join(t.TempDir(), "missing"))

	assert.Error(t, err)
}

func TestIngestCmd_MarkdownFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTemp(t, "ct-basics.md", "# CT Basics\n\nA CT scan combines **many** X-ray images into slices.")

	out, err := execute(t, "ingest", "--json", "--source", "ACR", "--report-type", "CT", "--category", "anatomy", path)
	require.NoError(t, err)

	var summary domain.IngestSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "CT Basics", summary.Results[0].Title)
	assert.Empty(t, summary.Results[0].Error)

	doc, err := documentReader.GetDocument(context.Background(), summary.Results[0].DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "ct", doc.ReportType)
	assert.Equal(t, "ACR", doc.Source)
	assert.Equal(t, "CT Basics\n\nA CT scan combines many X-ray images into slices.", doc.Content)
	assert.Equal(t, "markdown", doc.Metadata["format"])
}

func TestIngestCmd_MarkdownWithoutFlagsFailsValidation(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTemp(t, "guide.md", "# Guide\n\nBody text.")

	out, err := execute(t, "ingest", "--json", path)
	require.NoError(t, err)

	var summary domain.IngestSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "Missing required fields", summary.Results[0].Error)
}

func TestIngestCmd_UnsupportedFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := writeTemp(t, "scan.png", "binary")

	_, err := execute(t, "ingest", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestPrintIngestSummary_SkippedChunks(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	printIngestSummary(rootCmd, domain.NewIngestSummary([]domain.IngestResult{
		{Title: "Complete", DocumentID: "d1", ChunksCreated: 4},
		{Title: "Partial", DocumentID: "d2", ChunksCreated: 3, ChunksFailed: 2},
		{Title: "Cut Short", DocumentID: "d3", ChunksCreated: 1, ChunksFailed: 5, Error: "Ingestion interrupted after 1/6 chunks: context deadline exceeded"},
	}))

	out := buf.String()
	assert.Contains(t, out, "Processed 2/3 documents with 8 total chunks")
	assert.Contains(t, out, "Complete (4 chunks)")
	assert.Contains(t, out, "Partial (3 chunks, 2 skipped)")
	assert.Contains(t, out, "Cut Short: Ingestion interrupted")
}
