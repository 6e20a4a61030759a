package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/logger"
	"github.com/custodia-labs/medlens/internal/normalisers"
)

// watchDebounce coalesces the burst of events an editor or copy produces.
const watchDebounce = 500 * time.Millisecond

var (
	ingestJSON       bool
	ingestWatch      string
	ingestSource     string
	ingestReportType string
	ingestCategory   string
	ingestTitle      string
)

// fileNormalisers converts non-JSON guideline files.
var fileNormalisers = normalisers.Default()

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Add guideline documents to the knowledge base",
	Long: `Reads guideline documents from JSON files, splits them into chunks,
embeds every chunk and stores the result in the knowledge base.

A JSON file may hold a single document, an array of documents, or an object
with a "documents" array. Each document needs title, content, source,
reportType and contentCategory; metadata is optional.

Markdown, HTML, DOCX and plain text files are converted to text first. Their
title comes from the file itself; --source, --report-type and --category
supply the remaining fields.

Use --watch to keep running and ingest JSON files as they appear in a directory.

Examples:
  medlens ingest guidelines/chest-xray.json
  medlens ingest --source RSNA --report-type xray --category anatomy chest.md
  medlens ingest --watch ./guidelines`,
	Args: func(cmd *cobra.Command, args []string) error {
		if ingestWatch == "" && len(args) == 0 {
			return errors.New("requires at least one file or --watch")
		}
		return nil
	},
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the summary as JSON")
	ingestCmd.Flags().StringVarP(&ingestWatch, "watch", "w", "", "directory to watch for new guideline files")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source for non-JSON files (e.g. RSNA)")
	ingestCmd.Flags().StringVar(&ingestReportType, "report-type", "", "report type for non-JSON files")
	ingestCmd.Flags().StringVar(&ingestCategory, "category", "", "content category for non-JSON files")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "title override for a single non-JSON file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return fmt.Errorf("ingestion %w", errNotConfigured)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) > 0 {
		var docs []domain.DocumentInput
		for _, path := range args {
			fileDocs, err := readDocumentsFile(ctx, path)
			if err != nil {
				return err
			}
			docs = append(docs, fileDocs...)
		}
		if err := ingestAndReport(ctx, cmd, docs); err != nil {
			return err
		}
	}

	if ingestWatch != "" {
		return watchDirectory(ctx, cmd, ingestWatch)
	}
	return nil
}

func ingestAndReport(ctx context.Context, cmd *cobra.Command, docs []domain.DocumentInput) error {
	summary, err := ingestionService.Ingest(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printIngestSummary(cmd, summary)
	return nil
}

func printIngestSummary(cmd *cobra.Command, summary domain.IngestSummary) {
	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Title.Render(summary.Message))
	for _, r := range summary.Results {
		if r.Failed() {
			cmd.Printf("  %s %s: %s\n", st.Error.Render("✗"), r.Title, r.Error)
			continue
		}
		if r.ChunksFailed > 0 {
			cmd.Printf("  %s %s (%d chunks, %d skipped) %s\n", st.Warning.Render("!"), r.Title,
				r.ChunksCreated, r.ChunksFailed, st.Muted.Render(r.DocumentID))
			continue
		}
		cmd.Printf("  %s %s (%d chunks) %s\n", st.Success.Render("✓"), r.Title, r.ChunksCreated, st.Muted.Render(r.DocumentID))
	}
}

// readDocumentsFile loads the documents held by a guideline file.
func readDocumentsFile(ctx context.Context, path string) ([]domain.DocumentInput, error) {
	if isJSONFile(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()

		docs, err := decodeDocuments(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return docs, nil
	}

	if !fileNormalisers.Supports(path) {
		return nil, fmt.Errorf("unsupported file type %q (supported: .json %s)",
			filepath.Ext(path), strings.Join(fileNormalisers.Extensions(), " "))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	doc, err := fileNormalisers.Normalise(ctx, domain.SourceFile{Path: path, Content: data})
	if err != nil {
		return nil, err
	}

	if ingestTitle != "" {
		doc.Title = ingestTitle
	}
	doc.Source = ingestSource
	doc.ReportType = strings.ToLower(ingestReportType)
	doc.ContentCategory = ingestCategory
	return []domain.DocumentInput{*doc}, nil
}

func isJSONFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// decodeDocuments accepts a single document, an array of documents, or an
// object with a "documents" array.
func decodeDocuments(r io.Reader) ([]domain.DocumentInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}

	if data[0] == '[' {
		var docs []domain.DocumentInput
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var wrapper struct {
		Documents *[]domain.DocumentInput `json:"documents"`
		domain.DocumentInput
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	if wrapper.Documents != nil {
		return *wrapper.Documents, nil
	}
	return []domain.DocumentInput{wrapper.DocumentInput}, nil
}

// shouldIngest reports whether a watch event names a visible guideline file
// that was created or written.
func shouldIngest(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !(isJSONFile(name) || fileNormalisers.Supports(name)) {
		return false
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.Mode().IsRegular()
}

// watchDirectory ingests guideline files written to dir until ctx is cancelled.
func watchDirectory(ctx context.Context, cmd *cobra.Command, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("Watching %s for guideline documents", dir)

	ready := make(chan string)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !shouldIngest(event) {
				continue
			}
			path := event.Name
			if t, exists := pending[path]; exists {
				t.Reset(watchDebounce)
				continue
			}
			pending[path] = time.AfterFunc(watchDebounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ready:
			delete(pending, path)
			docs, err := readDocumentsFile(ctx, path)
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				continue
			}
			if err := ingestAndReport(ctx, cmd, docs); err != nil {
				logger.Warn("Ingesting %s failed: %v", path, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}
