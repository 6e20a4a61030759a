package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medlens/internal/core/domain"
)

var (
	analyzeMode     string
	analyzeJSON     bool
	analyzeFileType string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image]",
	Short: "Explain a medical image",
	Long: `Classifies a medical image, retrieves matching guideline excerpts and
produces an explanation for a patient or a clinician.

Examples:
  medlens analyze chest.png
  medlens analyze --mode clinician --json scan.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeMode, "mode", "m", "patient", "audience: patient or clinician")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the result as JSON")
	analyzeCmd.Flags().StringVar(&analyzeFileType, "file-type", "", "media type of the image (detected when empty)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return fmt.Errorf("analysis %w", errNotConfigured)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	fileType := analyzeFileType
	if fileType == "" {
		fileType = detectMediaType(args[0], data)
	}

	result := analysisService.Analyze(cmd.Context(), domain.AnalysisRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		FileType:    fileType,
		Mode:        domain.ParseMode(analyzeMode),
	})

	if analyzeJSON {
		out, err := json.MarshalIndent(result.Response(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	printAnalysis(cmd, result.Response())
	return nil
}

// detectMediaType sniffs the content and falls back to the extension.
func detectMediaType(path string, data []byte) string {
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return "application/octet-stream"
}

func printAnalysis(cmd *cobra.Command, resp domain.AnalysisResponse) {
	st := newStyles(cmd.OutOrStdout())
	reportType := domain.ReportType(resp.ReportType).DisplayName()

	cmd.Println(st.Title.Render(fmt.Sprintf("%s (%s view)", reportType, resp.Mode)))
	cmd.Println()

	section := func(title string, body *string) {
		if body == nil || *body == "" {
			return
		}
		cmd.Println(st.Heading.Render(title))
		cmd.Println(*body)
		cmd.Println()
	}

	if resp.Mode == string(domain.ModeClinician) {
		section("Imaging type and region", resp.ImagingTypeAndRegion)
		if len(resp.KeyObservations) > 0 {
			cmd.Println(st.Heading.Render("Key observations"))
			for _, o := range resp.KeyObservations {
				cmd.Printf("  • %s\n", o)
			}
			cmd.Println()
		}
		section("Impression", resp.Impression)
		section("Recommendation", resp.Recommendation)
	} else {
		section("What this test is about", resp.WhatThisTestIsAbout)
		section("What the image shows", resp.SimpleImageExplanation)
		section("Possible risk factors", resp.PossibleRiskFactors)
		section("Why consult a doctor", resp.WhyConsultDoctor)
		section("Reassurance", resp.Reassurance)
	}

	summary := resp.Summary
	section("Summary", &summary)

	if len(resp.References) > 0 {
		cmd.Println(st.Heading.Render("References"))
		for _, ref := range resp.References {
			cmd.Printf("  - %s\n", ref)
		}
		cmd.Println()
	}

	cmd.Println(st.Box.Render(st.Warning.Render(resp.Disclaimer)))
}
