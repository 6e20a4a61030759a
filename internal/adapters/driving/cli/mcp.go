package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medlens/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the analyze_report and search_guidelines tools plus the
report type and guideline document resources.

By default, the server communicates over stdio using JSON-RPC. Use --port to
start an HTTP server instead, which serves the streamable HTTP transport at
/mcp for tools such as MCP Inspector.

Examples:
  # Stdio mode (default)
  medlens mcp serve

  # HTTP mode
  medlens mcp serve --port 8080

Desktop assistant configuration:
  {
    "mcpServers": {
      "medlens": {
        "command": "/path/to/medlens",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Analysis:  analysisService,
		Search:    searchService,
		Documents: documentReader,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s%s\n", addr, mcp.HTTPPath)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
