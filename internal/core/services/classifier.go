package services

import (
	"context"
	"time"

	"github.com/custodia-labs/medlens/internal/core/domain"
	"github.com/custodia-labs/medlens/internal/core/ports/driven"
	"github.com/custodia-labs/medlens/internal/logger"
	"github.com/custodia-labs/medlens/internal/metrics"
)

// Classifier prompts and defaults.
const (
	classifierSystemPrompt = "Analyze this medical image. Identify the type and extract text.\n" +
		`Respond in JSON: {"reportType": "ct"|"mri"|"xray"|"lab", "extractedText": "visible text and observations"}`
	classifierUserPrompt = "Classify this medical image."

	// DefaultExtractedText replaces a missing extractedText in a parsed answer.
	DefaultExtractedText = "medical imaging scan"

	// FallbackExtractedText is used when classification fails entirely. It is
	// chosen to still retrieve general imaging guidance.
	FallbackExtractedText = "medical imaging scan computed tomography abdominal chest radiograph"

	// DefaultClassifierMaxTokens bounds the classification answer.
	DefaultClassifierMaxTokens = 1024
)

// FallbackClassification is returned whenever classification cannot complete.
func FallbackClassification() domain.Classification {
	return domain.Classification{Type: domain.DefaultReportType, ExtractedText: FallbackExtractedText}
}

// ReportClassifier asks a vision model for the report type and visible text.
type ReportClassifier struct {
	model     driven.VisionModel
	maxTokens int
	timeout   time.Duration
}

// NewReportClassifier creates a classifier. A nil model always yields the fallback.
func NewReportClassifier(model driven.VisionModel, maxTokens int, timeout time.Duration) *ReportClassifier {
	if maxTokens <= 0 {
		maxTokens = DefaultClassifierMaxTokens
	}
	return &ReportClassifier{model: model, maxTokens: maxTokens, timeout: timeout}
}

// Classify never fails. Every error path returns FallbackClassification.
func (c *ReportClassifier) Classify(ctx context.Context, imageBase64, fileType string) domain.Classification {
	logger.Section("Classification")

	if c.model == nil {
		logger.Warn("Classification skipped: no vision model configured")
		metrics.RecordFallback(metrics.StageClassification)
		return FallbackClassification()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	content, err := c.model.Complete(ctx, driven.CompletionRequest{
		System:    classifierSystemPrompt,
		Prompt:    classifierUserPrompt,
		Image:     &driven.Image{Base64: imageBase64, MediaType: fileType},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		logger.Warn("Classification failed, using fallback: %v", err)
		metrics.RecordFallback(metrics.StageClassification)
		return FallbackClassification()
	}

	result, ok := parseClassification(content)
	if !ok {
		logger.Warn("Classification answer not parseable, using fallback")
		metrics.RecordFallback(metrics.StageClassification)
		return FallbackClassification()
	}

	logger.Debug("Report type: %s, extracted %d chars", result.Type, len(result.ExtractedText))
	return result
}

// parseClassification decodes a classifier answer. It reports false when the
// answer is not JSON or reportType is present but not a string.
func parseClassification(content string) (domain.Classification, bool) {
	obj, err := parseModelJSON(content)
	if err != nil {
		return domain.Classification{}, false
	}

	label := string(domain.DefaultReportType)
	if raw, present := obj["reportType"]; present && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return domain.Classification{}, false
		}
		if s != "" {
			label = s
		}
	}

	text, ok := stringField(obj, "extractedText")
	if !ok {
		text = DefaultExtractedText
	}

	return domain.Classification{Type: domain.ParseReportType(label), ExtractedText: text}, true
}
