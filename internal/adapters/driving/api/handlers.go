package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/services"
	"github.com/custodia-labs/medlens/internal/logger"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// Error bodies of the ingestion endpoint.
const (
	msgEmbeddingKeyMissing = "Gemini API key not configured. Required for generating embeddings."
	msgInvalidIngest       = "Invalid request. Provide document(s) with: title, content, source, reportType, contentCategory"
)

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
	FileType    string `json:"fileType"`
	Mode        string `json:"mode"`
}

// ingestRequest accepts either {documents:[...]} or a single document.
type ingestRequest struct {
	Documents *[]domain.DocumentInput `json:"documents"`
	domain.DocumentInput
}

func (r ingestRequest) documents() []domain.DocumentInput {
	if r.Documents != nil {
		return *r.Documents
	}
	return []domain.DocumentInput{r.DocumentInput}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ready"}
	ready := true

	switch {
	case s.services.Store == nil:
		checks["knowledge_base"] = "not configured"
	default:
		if err := s.services.Store.Ping(r.Context()); err != nil {
			checks["knowledge_base"] = "not ready: " + err.Error()
			ready = false
		} else {
			checks["knowledge_base"] = "ready"
		}
	}

	status, label := http.StatusOK, "ready"
	if !ready {
		status, label = http.StatusServiceUnavailable, "not ready"
	}
	writeJSON(w, status, map[string]any{"status": label, "checks": checks})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Malformed analyze request: %v", err)
		metrics.RecordFallback(metrics.StageRequest)
		writeJSON(w, http.StatusOK, services.SafeResponse(domain.ModePatient, domain.ReportTypeUnknown, services.MessageRequestFail))
		return
	}

	result := s.services.Analysis.Analyze(r.Context(), domain.AnalysisRequest{
		ImageBase64: req.ImageBase64,
		FileType:    req.FileType,
		Mode:        domain.ParseMode(req.Mode),
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	// An undecodable body is treated as an empty batch so the credential
	// check still takes precedence.
	var docs []domain.DocumentInput
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Malformed ingest request: %v", err)
	} else {
		docs = req.documents()
	}

	summary, err := s.services.Ingestion.Ingest(r.Context(), docs)
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgEmbeddingKeyMissing})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidIngest})
	case err != nil:
		logger.Error("Ingestion error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, summary)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Writing response: %v", err)
	}
}
