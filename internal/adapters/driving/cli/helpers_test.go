package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/medlens/internal/adapters/driven/fake"
	"github.com/custodia-labs/medlens/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medlens/internal/config"
	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/core/services"
	"github.com/custodia-labs/medlens/internal/postprocessors/chunker"
)

// modelReply satisfies both the classification and synthesis prompts.
const modelReply = `{
  "reportType": "xray",
  "extractedText": "PA chest radiograph, lungs clear",
  "summary": "The lungs look clear.",
  "impression": "No acute cardiopulmonary findings.",
  "keyObservations": ["Clear lung fields"]
}`

var testGuideline = domain.DocumentInput{
	Title:           "Chest Radiograph Basics",
	Content:         "A chest radiograph shows the lungs, heart and ribs. Clear lungs appear dark on the film.",
	Source:          "RSNA",
	ReportType:      "xray",
	ContentCategory: "anatomy",
}

// setupTestServices wires real services over fakes and an in-memory store,
// seeds one guideline and returns a function restoring the previous state.
func setupTestServices() func() {
	prevCfg, prevAnalysis, prevIngestion := cfg, analysisService, ingestionService
	prevSearch, prevReader, prevPinger := searchService, documentReader, storePinger

	store := memory.NewKnowledgeStore()
	embedder := fake.NewEmbedder(16)
	model := fake.NewVisionModel()
	model.Respond = func(driven.CompletionRequest) (string, error) {
		return modelReply, nil
	}

	ingestion, err := services.NewIngestionService(store, embedder, chunker.New(), nil, 2)
	if err != nil {
		panic(err)
	}
	if _, err := ingestion.Ingest(context.Background(), []domain.DocumentInput{testGuideline}); err != nil {
		panic(err)
	}

	retriever := services.NewRetriever(embedder, services.NewHybridSearchEngine(store, services.DefaultSearchOptions()), 0)

	cfg = config.Default()
	analysisService = services.NewAnalysisService(model, retriever, services.AnalysisOptions{})
	ingestionService = ingestion
	searchService = services.NewSearchService(retriever)
	documentReader = store
	storePinger = store

	return func() {
		ingestion.Close()
		cfg, analysisService, ingestionService = prevCfg, prevAnalysis, prevIngestion
		searchService, documentReader, storePinger = prevSearch, prevReader, prevPinger
		searchJSON, searchLimit, searchReportType, searchMode = false, 10, "", "patient"
		ingestJSON, ingestWatch, ingestTitle = false, "", ""
		ingestSource, ingestReportType, ingestCategory = "", "", ""
		analyzeJSON, analyzeMode, analyzeFileType = false, "patient", ""
	}
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

type mockSearchServiceError struct{}

func (mockSearchServiceError) Search(context.Context, string, domain.ReportType, domain.Mode) ([]domain.SafeContext, error) {
	return nil, errors.New("database unavailable")
}

type mockIngestionServiceError struct{}

func (mockIngestionServiceError) Ingest(context.Context, []domain.DocumentInput) (domain.IngestSummary, error) {
	return domain.IngestSummary{}, domain.ErrEmbeddingUnavailable
}

// captureOutput runs fn with the root command writing to a buffer.
func captureOutput(fn func()) string {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	fn()
	return buf.String()
}
