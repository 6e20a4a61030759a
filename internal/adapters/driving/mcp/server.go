// Package mcp exposes the medlens analysis and guideline search over the
// Model Context Protocol.
//
// Desktop assistants launch the server as a subprocess and speak JSON-RPC
// over stdio. For browser tooling such as MCP Inspector the same server is
// served as a streamable HTTP endpoint at HTTPPath.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medlens/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// HTTPPath is where the streamable HTTP transport is mounted.
const HTTPPath = "/mcp"

const httpShutdownTimeout = 5 * time.Second

// instructions is sent to clients on initialize.
const instructions = `medlens explains medical images (CT, MRI, X-ray, lab reports).
Call analyze_report with a base64 image and mode "patient" or "clinician".
Call search_guidelines to read the stored guideline excerpts the explanations are grounded in.
Stored guidelines can be read as medlens://documents/{documentId}.
Explanations are educational and never a diagnosis.`

// Server adapts the analysis and search services to MCP tools and resources.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer validates ports and registers the tools and resources.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "medlens", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves a single client over stdio until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP transport mounted at HTTPPath.
// Every HTTP session shares the same tool and resource registrations.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(HTTPPath, mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil))
	return mux
}

// RunHTTP serves Handler on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Info("MCP server listening on %s%s", addr, HTTPPath)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}
