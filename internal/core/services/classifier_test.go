package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medlens/internal/adapters/driven/fake"
	"github.com/custodia-labs/medlens/internal/core/domain"
)

func TestReportClassifier_Classify(t *testing.T) {
	model := fake.NewVisionModel(fake.Reply{
		Content: "```json\n{\"reportType\": \"XRAY\", \"extractedText\": \"PA chest view, clear lung fields\"}\n```",
	})
	c := NewReportClassifier(model, 0, 0)

	got := c.Classify(context.Background(), "aW1n", "image/png")

	assert.Equal(t, domain.ReportTypeXRay, got.Type)
	assert.Equal(t, "PA chest view, clear lung fields", got.ExtractedText)

	reqs := model.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, DefaultClassifierMaxTokens, reqs[0].MaxTokens)
	require.NotNil(t, reqs[0].Image)
	assert.Equal(t, "aW1n", reqs[0].Image.Base64)
	assert.Equal(t, "image/png", reqs[0].Image.MediaType)
}

func TestReportClassifier_AlwaysClosed(t *testing.T) {
	answers := []string{
		`{"reportType": "ultrasound", "extractedText": "liver"}`,
		`{"reportType": "", "extractedText": "liver"}`,
		`{"extractedText": "liver"}`,
		`{"reportType": 7}`,
		`not json`,
		`[1, 2, 3]`,
		``,
	}
	for _, answer := range answers {
		t.Run(answer, func(t *testing.T) {
			c := NewReportClassifier(fake.NewVisionModel(fake.Reply{Content: answer}), 0, 0)
			got := c.Classify(context.Background(), "aW1n", "image/png")
			assert.True(t, got.Type.IsValid(), "got %q", got.Type)
			assert.NotEmpty(t, got.ExtractedText)
		})
	}
}

func TestReportClassifier_DefaultsMissingText(t *testing.T) {
	c := NewReportClassifier(fake.NewVisionModel(fake.Reply{Content: `{"reportType": "mri"}`}), 0, 0)

	got := c.Classify(context.Background(), "aW1n", "image/png")

	assert.Equal(t, domain.ReportTypeMRI, got.Type)
	assert.Equal(t, DefaultExtractedText, got.ExtractedText)
}

func TestReportClassifier_NonStringTypeFallsBack(t *testing.T) {
	c := NewReportClassifier(fake.NewVisionModel(fake.Reply{Content: `{"reportType": ["mri"], "extractedText": "x"}`}), 0, 0)

	assert.Equal(t, FallbackClassification(), c.Classify(context.Background(), "aW1n", "image/png"))
}

func TestReportClassifier_ProviderErrorFallsBack(t *testing.T) {
	model := fake.NewVisionModel(fake.Reply{Err: &domain.ProviderError{Provider: "openai", Status: 429}})
	c := NewReportClassifier(model, 0, 0)

	got := c.Classify(context.Background(), "aW1n", "image/png")

	assert.Equal(t, domain.DefaultReportType, got.Type)
	assert.Equal(t, FallbackExtractedText, got.ExtractedText)
}

func TestReportClassifier_NilModel(t *testing.T) {
	c := NewReportClassifier(nil, 0, 0)
	assert.Equal(t, FallbackClassification(), c.Classify(context.Background(), "aW1n", "image/png"))
}

func TestReportClassifier_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := fake.NewVisionModel(fake.Reply{Content: `{"reportType": "lab"}`})
	got := NewReportClassifier(model, 0, 0).Classify(ctx, "aW1n", "image/png")

	assert.Equal(t, FallbackClassification(), got)
}
