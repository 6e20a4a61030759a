// Package cli provides the medlens command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medlens/internal/adapters/driving/api"
	"github.com/custodia-labs/medlens/internal/adapters/driving/mcp"
	"github.com/custodia-labs/medlens/internal/config"
	"github.com/custodia-labs/medlens/internal/core/ports/driving"
	"github.com/custodia-labs/medlens/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipInitAnnotation marks commands that run without configuration or services.
const skipInitAnnotation = "medlens/skip-init"

var (
	configPath string
	verbose    bool
)

// Package-level services, set once by initServices or by tests.
var (
	cfg              *config.Config
	analysisService  driving.AnalysisService
	ingestionService driving.IngestionService
	searchService    driving.SearchService
	documentReader   mcp.DocumentReader
	storePinger      api.Pinger
	closeServices    func()
)

var rootCmd = &cobra.Command{
	Use:   "medlens",
	Short: "Explain medical images with grounded, audience-safe guidance",
	Long: `medlens turns an uploaded medical image into a structured explanation
for a patient or a clinician, grounded in a knowledge base of guideline documents.

It runs as an HTTP API (serve), an MCP server (mcp serve), or directly from the
command line (ingest, analyze, search).`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.medlens/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer shutdownServices()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// initServices loads configuration once and wires every service.
func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[skipInitAnnotation] == "true" || cfg != nil {
		return nil
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Configure(logger.Config{Level: loaded.Log.Level, Pretty: loaded.Log.Pretty})
	logger.SetVerbose(verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, loaded)
	if err != nil {
		return err
	}

	cfg = loaded
	analysisService = a.analysis
	ingestionService = a.ingestion
	searchService = a.search
	documentReader = a.documents
	storePinger = a.store
	closeServices = a.Close
	return nil
}

func shutdownServices() {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
}

var errNotConfigured = errors.New("service not configured")
