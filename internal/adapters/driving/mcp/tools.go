package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// defaultSearchLimit caps search_guidelines results when no limit is given.
const defaultSearchLimit = 10

// AnalyzeInput is the input schema for the analyze_report tool.
type AnalyzeInput struct {
	ImageBase64 string `json:"imageBase64" jsonschema:"the base64-encoded image without a data URL prefix"`
	FileType    string `json:"fileType,omitempty" jsonschema:"the media type of the image, e.g. image/png"`
	Mode        string `json:"mode,omitempty" jsonschema:"patient (default) or clinician"`
}

// SearchInput is the input schema for the search_guidelines tool.
type SearchInput struct {
	Text       string `json:"text" jsonschema:"free text to find guideline excerpts for"`
	ReportType string `json:"reportType,omitempty" jsonschema:"restrict to ct, mri, xray or lab; empty searches all"`
	Mode       string `json:"mode,omitempty" jsonschema:"patient (default) or clinician; controls which categories are hidden"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of excerpts to return (default 10)"`
}

// SearchOutput is the output schema for the search_guidelines tool.
type SearchOutput struct {
	Results []domain.SafeContext `json:"results"`
	Count   int                  `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_report",
		Description: "Explain a medical image for a patient or a clinician, grounded in stored guidelines",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_guidelines",
		Description: "Search the guideline knowledge base for excerpts safe for the given audience",
	}, s.handleSearch)
}

// handleAnalyze handles the analyze_report tool invocation. It never fails:
// the pipeline always produces a complete explanation.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, domain.AnalysisResponse, error) {
	result := s.ports.Analysis.Analyze(ctx, domain.AnalysisRequest{
		ImageBase64: input.ImageBase64,
		FileType:    input.FileType,
		Mode:        domain.ParseMode(input.Mode),
	})
	return nil, result.Response(), nil
}

// handleSearch handles the search_guidelines tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	reportType := domain.ReportType(strings.ToLower(strings.TrimSpace(input.ReportType)))
	results, err := s.ports.Search.Search(ctx, input.Text, reportType, domain.ParseMode(input.Mode))
	if err != nil {
		return nil, SearchOutput{}, err
	}

	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []domain.SafeContext{}
	}

	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}
