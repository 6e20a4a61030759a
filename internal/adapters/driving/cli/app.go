package cli

import (
	"context"
	"fmt"

	"github.com/custodia-labs/medlens/internal/adapters/driven/ai"
	"github.com/custodia-labs/medlens/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/medlens/internal/adapters/driving/mcp"
	"github.com/custodia-labs/medlens/internal/config"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/core/services"
	"github.com/custodia-labs/medlens/internal/postprocessors/chunker"
)

// app holds the wired services for one process.
type app struct {
	analysis  *services.AnalysisService
	ingestion *services.IngestionService
	search    *services.SearchService
	store     driven.KnowledgeBase
	documents mcp.DocumentReader

	adapters *ai.InitResult
}

// newApp builds adapters from cfg and wires the core services.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	adapters, err := ai.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}

	engine := services.NewHybridSearchEngine(adapters.Store, services.SearchOptions{
		MatchCount:   cfg.Search.MatchCount,
		VectorWeight: cfg.Search.VectorWeight,
		TextWeight:   cfg.Search.TextWeight,
	})
	retriever := services.NewRetriever(adapters.EmbeddingService, engine, cfg.RetrievalTimeout())

	analysis := services.NewAnalysisService(adapters.VisionModel, retriever, services.AnalysisOptions{
		ClassifierMaxTokens: cfg.Chat.ClassifierMaxTokens,
		ClassifierTimeout:   cfg.ClassifierTimeout(),
		SynthesisMaxTokens:  cfg.Chat.SynthesisMaxTokens,
		SynthesisTimeout:    cfg.ChatTimeout(),
		MinQueryTextLength:  cfg.Search.MinQueryTextLength,
	})

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
		Burst:             cfg.Ingest.Burst,
	})
	ingestion, err := services.NewIngestionService(
		adapters.Store,
		adapters.EmbeddingService,
		chunker.New(chunker.WithChunkSize(cfg.Ingest.ChunkSize), chunker.WithOverlap(cfg.Ingest.ChunkOverlap)),
		limiter,
		cfg.Ingest.Workers,
	)
	if err != nil {
		adapters.Close()
		return nil, fmt.Errorf("creating ingestion service: %w", err)
	}

	a := &app{
		analysis:  analysis,
		ingestion: ingestion,
		search:    services.NewSearchService(retriever),
		store:     adapters.Store,
		adapters:  adapters,
	}
	if reader, ok := adapters.Store.(mcp.DocumentReader); ok {
		a.documents = reader
	}
	return a, nil
}

// Close releases the worker pool and every adapter.
func (a *app) Close() {
	a.ingestion.Close()
	a.adapters.Close()
}
