package services

import (
	"github.com/custodia-labs/medlens/internal/core/domain"
)

// Disclaimers per audience.
const (
	PatientDisclaimer   = "⚠️ This explanation is for educational purposes only and is not a medical diagnosis."
	ClinicianDisclaimer = "AI-generated educational summary. Not a substitute for formal radiological interpretation."
)

// Messages placed in the summary of short-circuited requests.
const (
	MessageNoImage     = "No image provided. Please upload a valid medical report."
	MessageConfigError = "Service configuration error. Please try again later."
	MessageRequestFail = "An error occurred. Please try again."
)

const (
	patientDefaultSummary   = "The scan shows areas that doctors carefully look at to understand your health. By itself, this image does not confirm any illness."
	clinicianDefaultSummary = "Imaging study received. Guideline-based interpretation requires clinical correlation."
)

// SafeResponse builds the canned, schema-complete result for mode. A
// non-empty message replaces the default summary. References are empty.
func SafeResponse(mode domain.Mode, reportType domain.ReportType, message string) domain.AnalysisResult {
	name := reportType.DisplayName()

	if mode == domain.ModeClinician {
		summary := clinicianDefaultSummary
		if message != "" {
			summary = message
		}
		return domain.AnalysisResult{
			ReportType: reportType,
			References: []string{},
			Disclaimer: ClinicianDisclaimer,
			Explanation: &domain.ClinicianExplanation{
				ImagingTypeAndRegion: "Imaging: " + name + "\nRegion: To be determined based on clinical context",
				KeyObservations: []string{
					"• Structural patterns noted",
					"• Density / contrast variations observed",
					"• Areas requiring clinical correlation",
				},
				Impression:     "Imaging features warrant clinical correlation with patient history and additional investigations if indicated.",
				Recommendation: "Correlation with clinical findings and formal radiology report is advised.",
				Summary:        summary,
			},
		}
	}

	summary := patientDefaultSummary
	if message != "" {
		summary = message
	}
	return domain.AnalysisResult{
		ReportType: reportType,
		References: []string{},
		Disclaimer: PatientDisclaimer,
		Explanation: &domain.PatientExplanation{
			WhatThisTestIsAbout:    "A " + name + " is a type of scan that takes detailed pictures of the inside of your body to help doctors understand what is happening.",
			SimpleImageExplanation: "This image shows internal body structures that doctors usually check for size, shape, and any unusual changes.",
			Summary:                summary,
			PossibleRiskFactors:    "Doctors often consider factors like age, lifestyle, long-term conditions, or previous medical history when reviewing scans like this.",
			WhyConsultDoctor:       "Only a doctor can review this image along with your symptoms and medical history to explain what it means for you.",
			Reassurance:            "Many scan findings are common and manageable. Your doctor will guide you clearly on the next steps.",
		},
	}
}

// withReferences attaches retrieval references to a canned result.
func withReferences(r domain.AnalysisResult, refs []string) domain.AnalysisResult {
	if refs != nil {
		r.References = refs
	}
	return r
}
