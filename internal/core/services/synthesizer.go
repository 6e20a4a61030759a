package services

import (
	"context"
	"time"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/logger"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// DefaultSynthesisMaxTokens bounds the explanation answer.
const DefaultSynthesisMaxTokens = 2048

// summaryExcerptLength is how much of an unparseable answer becomes the summary.
const summaryExcerptLength = 500

// ResponseSynthesizer asks a vision model for an audience-specific
// explanation and repairs whatever comes back into a complete result.
type ResponseSynthesizer struct {
	model     driven.VisionModel
	maxTokens int
	timeout   time.Duration
}

// NewResponseSynthesizer creates a synthesizer. A nil model always yields canned results.
func NewResponseSynthesizer(model driven.VisionModel, maxTokens int, timeout time.Duration) *ResponseSynthesizer {
	if maxTokens <= 0 {
		maxTokens = DefaultSynthesisMaxTokens
	}
	return &ResponseSynthesizer{model: model, maxTokens: maxTokens, timeout: timeout}
}

// Synthesize never fails. Provider errors, empty answers and transport
// failures yield the canned response with references attached.
func (s *ResponseSynthesizer) Synthesize(
	ctx context.Context,
	req domain.AnalysisRequest,
	reportType domain.ReportType,
	contexts []domain.SafeContext,
	references []string,
) domain.AnalysisResult {
	logger.Section("Synthesis")

	if references == nil {
		references = []string{}
	}

	if s.model == nil {
		logger.Warn("Synthesis skipped: no vision model configured")
		metrics.RecordFallback(metrics.StageSynthesis)
		return withReferences(SafeResponse(req.Mode, reportType, ""), references)
	}

	system := BuildSystemPrompt(req.Mode, reportType, BuildContext(contexts))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content, err := s.model.Complete(ctx, driven.CompletionRequest{
		System:    system,
		Prompt:    synthesisUserPrompt,
		Image:     &driven.Image{Base64: req.ImageBase64, MediaType: req.FileType},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		logger.Warn("Synthesis failed, using canned response: %v", err)
		metrics.RecordFallback(metrics.StageSynthesis)
		return withReferences(SafeResponse(req.Mode, reportType, ""), references)
	}

	parsed, err := parseModelJSON(content)
	if err != nil {
		logger.Warn("Synthesis answer not JSON, using excerpt as summary")
		parsed = map[string]any{"summary": excerpt(content, summaryExcerptLength)}
	}

	return mergeExplanation(req.Mode, reportType, parsed, references)
}

// mergeExplanation overlays parsed model fields of the active mode onto the
// canned defaults. Fields of the other mode are ignored.
func mergeExplanation(
	mode domain.Mode, reportType domain.ReportType, parsed map[string]any, references []string,
) domain.AnalysisResult {
	result := SafeResponse(mode, reportType, "")
	result.References = references

	if v, ok := stringField(parsed, "disclaimer"); ok {
		result.Disclaimer = v
	}

	switch e := result.Explanation.(type) {
	case *domain.PatientExplanation:
		overlay(parsed, "whatThisTestIsAbout", &e.WhatThisTestIsAbout)
		overlay(parsed, "simpleImageExplanation", &e.SimpleImageExplanation)
		overlay(parsed, "summary", &e.Summary)
		overlay(parsed, "possibleRiskFactors", &e.PossibleRiskFactors)
		overlay(parsed, "whyConsultDoctor", &e.WhyConsultDoctor)
		overlay(parsed, "reassurance", &e.Reassurance)
	case *domain.ClinicianExplanation:
		overlay(parsed, "imagingTypeAndRegion", &e.ImagingTypeAndRegion)
		if obs, ok := stringsField(parsed, "keyObservations"); ok {
			e.KeyObservations = obs
		}
		overlay(parsed, "impression", &e.Impression)
		overlay(parsed, "recommendation", &e.Recommendation)
		overlay(parsed, "summary", &e.Summary)
	}

	return result
}

func overlay(parsed map[string]any, key string, dst *string) {
	if v, ok := stringField(parsed, key); ok {
		*dst = v
	}
}
