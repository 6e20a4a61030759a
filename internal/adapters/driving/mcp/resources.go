package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for medlens resources.
	uriScheme = "medlens://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the classifiable report types.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "report-types",
		Name:        "report-types",
		Description: "Report types an image can be classified into",
		MIMEType:    "application/json",
	}, s.handleReportTypesResource)

	// Template for stored guideline documents.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "guideline-document",
		Description: "Full text of a stored guideline document",
		MIMEType:    "text/plain",
	}, s.handleDocumentResource)
}

// handleReportTypesResource lists the closed set of report types.
func (s *Server) handleReportTypesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type typeInfo struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}

	types := domain.ReportTypes()
	infos := make([]typeInfo, len(types))
	for i, t := range types {
		infos[i] = typeInfo{ID: string(t), DisplayName: t.DisplayName()}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling report types: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleDocumentResource returns the content of a stored document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract documentId from URI: medlens://documents/{documentId}
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Documents.GetDocument(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("%s\nSource: %s\n\n%s", doc.Title, doc.Source, doc.Content),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like medlens://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
