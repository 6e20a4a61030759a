package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medlens/internal/adapters/driving/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API serving report analysis, document ingestion,
health, readiness and Prometheus metrics.

Examples:
  medlens serve
  medlens serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if analysisService == nil || ingestionService == nil {
		return fmt.Errorf("api %w", errNotConfigured)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server := api.NewServer(api.Services{
		Analysis:  analysisService,
		Ingestion: ingestionService,
		Store:     storePinger,
	}, api.Options{
		RequestTimeout: cfg.RequestTimeout(),
		IngestTimeout:  cfg.IngestTimeout(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	return server.Run(cmd.Context(), addr)
}
