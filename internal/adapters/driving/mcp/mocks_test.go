package mcp

import (
	"context"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	result  domain.AnalysisResult
	lastReq domain.AnalysisRequest
}

func (m *mockAnalysisService) Analyze(_ context.Context, req domain.AnalysisRequest) domain.AnalysisResult {
	m.lastReq = req
	return m.result
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results        []domain.SafeContext
	err            error
	lastText       string
	lastReportType domain.ReportType
	lastMode       domain.Mode
}

func (m *mockSearchService) Search(
	_ context.Context,
	text string,
	reportType domain.ReportType,
	mode domain.Mode,
) ([]domain.SafeContext, error) {
	m.lastText, m.lastReportType, m.lastMode = text, reportType, mode
	return m.results, m.err
}

// mockDocumentReader is a mock implementation of DocumentReader.
type mockDocumentReader struct {
	docs map[string]domain.Document
	err  error
}

func (m *mockDocumentReader) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func validPorts() *Ports {
	return &Ports{Analysis: &mockAnalysisService{}, Search: &mockSearchService{}}
}
