package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/core/ports/driving"
	"github.com/custodia-labs/medlens/internal/logger"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// DefaultMinQueryTextLength is the shortest extracted text worth retrieving for.
const DefaultMinQueryTextLength = 10

// AnalysisOptions configures the analysis pipeline.
type AnalysisOptions struct {
	ClassifierMaxTokens int
	ClassifierTimeout   time.Duration
	SynthesisMaxTokens  int
	SynthesisTimeout    time.Duration
	MinQueryTextLength  int
}

// AnalysisService runs classification, retrieval and synthesis as one
// sequential chain in which every stage degrades instead of failing.
type AnalysisService struct {
	model       driven.VisionModel
	classifier  *ReportClassifier
	retriever   *Retriever
	synthesizer *ResponseSynthesizer
	minText     int
}

// NewAnalysisService creates the pipeline. model may be nil, in which case
// every request short-circuits with a configuration message. retriever may
// be nil or disabled, in which case synthesis runs ungrounded.
func NewAnalysisService(model driven.VisionModel, retriever *Retriever, opts AnalysisOptions) *AnalysisService {
	if opts.MinQueryTextLength <= 0 {
		opts.MinQueryTextLength = DefaultMinQueryTextLength
	}
	return &AnalysisService{
		model:       model,
		classifier:  NewReportClassifier(model, opts.ClassifierMaxTokens, opts.ClassifierTimeout),
		retriever:   retriever,
		synthesizer: NewResponseSynthesizer(model, opts.SynthesisMaxTokens, opts.SynthesisTimeout),
		minText:     opts.MinQueryTextLength,
	}
}

// Analyze always returns a complete result. A panic anywhere in the chain
// yields the generic patient-mode error response.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (result domain.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Analysis panicked: %v", r)
			metrics.RecordFallback(metrics.StageRequest)
			result = SafeResponse(domain.ModePatient, domain.ReportTypeUnknown, MessageRequestFail)
		}
	}()

	logger.Section("Analysis")

	mode := domain.ParseMode(string(req.Mode))
	req.Mode = mode

	if req.ImageBase64 == "" {
		logger.Debug("No image provided")
		return SafeResponse(mode, domain.ReportTypeUnknown, MessageNoImage)
	}

	if s.model == nil {
		logger.Error("Vision model not configured")
		metrics.RecordFallback(metrics.StageConfiguration)
		return SafeResponse(mode, domain.ReportTypeUnknown, MessageConfigError)
	}

	classification := s.classifier.Classify(ctx, req.ImageBase64, req.FileType)

	var contexts []domain.SafeContext
	if s.retriever.Enabled() && utf8.RuneCountInString(classification.ExtractedText) >= s.minText {
		contexts = s.retriever.Retrieve(ctx, classification.ExtractedText, classification.Type, mode)
	} else {
		logger.Debug("Retrieval skipped")
	}
	references := ExtractReferences(contexts)
	metrics.RecordRetrievedContexts(len(contexts))

	result = s.synthesizer.Synthesize(ctx, req, classification.Type, contexts, references)
	metrics.RecordAnalysis(string(mode), string(classification.Type))
	logger.Info("Analysis complete: type=%s mode=%s references=%d", classification.Type, mode, len(references))
	return result
}
