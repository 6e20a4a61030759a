package domain

import "encoding/json"

// AnalysisRequest is an uploaded image to explain.
type AnalysisRequest struct {
	// ImageBase64 is the base64-encoded image without a data URL prefix.
	ImageBase64 string

	// FileType is the declared media type (e.g. "image/png").
	FileType string

	// Mode is the target audience.
	Mode Mode
}

// Classification is the outcome of report classification.
type Classification struct {
	Type          ReportType
	ExtractedText string
}

// AnalysisResult is an audience-specific explanation of one image.
// Exactly one explanation variant is populated, selected by mode.
type AnalysisResult struct {
	ReportType ReportType

	// References lists "[source] title" entries in first-seen order.
	References []string

	Disclaimer string

	// Explanation is either *PatientExplanation or *ClinicianExplanation.
	Explanation Explanation
}

// Explanation is the mode-specific body of an AnalysisResult.
// It is implemented only by *PatientExplanation and *ClinicianExplanation.
type Explanation interface {
	Mode() Mode
	isExplanation()
}

// PatientExplanation holds the plain-language fields shown to patients.
type PatientExplanation struct {
	WhatThisTestIsAbout    string
	SimpleImageExplanation string
	Summary                string
	PossibleRiskFactors    string
	WhyConsultDoctor       string
	Reassurance            string
}

// Mode returns ModePatient.
func (*PatientExplanation) Mode() Mode { return ModePatient }

func (*PatientExplanation) isExplanation() {}

// ClinicianExplanation holds the terminology-based fields shown to clinicians.
type ClinicianExplanation struct {
	ImagingTypeAndRegion string
	KeyObservations      []string
	Impression           string
	Recommendation       string
	Summary              string
}

// Mode returns ModeClinician.
func (*ClinicianExplanation) Mode() Mode { return ModeClinician }

func (*ClinicianExplanation) isExplanation() {}

// Mode returns the audience of the populated variant.
func (r AnalysisResult) Mode() Mode {
	if r.Explanation == nil {
		return ModePatient
	}
	return r.Explanation.Mode()
}

// Summary returns the summary of whichever variant is populated.
func (r AnalysisResult) Summary() string {
	switch e := r.Explanation.(type) {
	case *PatientExplanation:
		return e.Summary
	case *ClinicianExplanation:
		return e.Summary
	default:
		return ""
	}
}

// AnalysisResponse is the flat wire shape of an AnalysisResult.
// Fields belonging to the inactive mode are nil and encode as JSON null.
type AnalysisResponse struct {
	ReportType string `json:"reportType"`
	Mode       string `json:"mode"`

	WhatThisTestIsAbout    *string `json:"whatThisTestIsAbout"`
	SimpleImageExplanation *string `json:"simpleImageExplanation"`
	Summary                string  `json:"summary"`
	PossibleRiskFactors    *string `json:"possibleRiskFactors"`
	WhyConsultDoctor       *string `json:"whyConsultDoctor"`
	Reassurance            *string `json:"reassurance"`

	ImagingTypeAndRegion *string  `json:"imagingTypeAndRegion"`
	KeyObservations      []string `json:"keyObservations"`
	Impression           *string  `json:"impression"`
	Recommendation       *string  `json:"recommendation"`

	References []string `json:"references"`
	Disclaimer string   `json:"disclaimer"`
}

// Response flattens the result into its wire shape.
func (r AnalysisResult) Response() AnalysisResponse {
	refs := r.References
	if refs == nil {
		refs = []string{}
	}

	resp := AnalysisResponse{
		ReportType: string(r.ReportType),
		Mode:       string(r.Mode()),
		Summary:    r.Summary(),
		References: refs,
		Disclaimer: r.Disclaimer,
	}

	switch e := r.Explanation.(type) {
	case *PatientExplanation:
		resp.WhatThisTestIsAbout = &e.WhatThisTestIsAbout
		resp.SimpleImageExplanation = &e.SimpleImageExplanation
		resp.PossibleRiskFactors = &e.PossibleRiskFactors
		resp.WhyConsultDoctor = &e.WhyConsultDoctor
		resp.Reassurance = &e.Reassurance
	case *ClinicianExplanation:
		resp.ImagingTypeAndRegion = &e.ImagingTypeAndRegion
		resp.KeyObservations = e.KeyObservations
		if resp.KeyObservations == nil {
			resp.KeyObservations = []string{}
		}
		resp.Impression = &e.Impression
		resp.Recommendation = &e.Recommendation
	}

	return resp
}

// MarshalJSON encodes the flat wire shape.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Response())
}
