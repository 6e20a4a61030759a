package domain

import "strings"

// ReportType is the closed set of imaging categories a report can be classified into.
type ReportType string

const (
	// ReportTypeCT is a computed tomography scan.
	ReportTypeCT ReportType = "ct"

	// ReportTypeMRI is a magnetic resonance imaging scan.
	ReportTypeMRI ReportType = "mri"

	// ReportTypeXRay is a plain radiograph.
	ReportTypeXRay ReportType = "xray"

	// ReportTypeLab is a laboratory report.
	ReportTypeLab ReportType = "lab"

	// ReportTypeUnknown labels responses produced before classification ran,
	// such as a request without an image. Classification never yields it.
	ReportTypeUnknown ReportType = "unknown"
)

// DefaultReportType is the category every unrecognised classification collapses to.
const DefaultReportType = ReportTypeCT

// ReportTypes returns the classifiable report types.
func ReportTypes() []ReportType {
	return []ReportType{ReportTypeCT, ReportTypeMRI, ReportTypeXRay, ReportTypeLab}
}

// ParseReportType coerces a model-produced label into the closed set.
// Matching is case-insensitive and ignores surrounding whitespace.
// Any other value, including the empty string, becomes DefaultReportType.
func ParseReportType(s string) ReportType {
	t := ReportType(strings.ToLower(strings.TrimSpace(s)))
	if t.IsValid() {
		return t
	}
	return DefaultReportType
}

// IsValid reports whether t is one of the classifiable report types.
func (t ReportType) IsValid() bool {
	switch t {
	case ReportTypeCT, ReportTypeMRI, ReportTypeXRay, ReportTypeLab:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable name used in prompts and canned text.
// Types outside the closed set are rendered in upper case.
func (t ReportType) DisplayName() string {
	switch ReportType(strings.ToLower(string(t))) {
	case ReportTypeCT:
		return "CT Scan"
	case ReportTypeMRI:
		return "MRI"
	case ReportTypeXRay:
		return "X-Ray"
	case ReportTypeLab:
		return "Lab Report"
	default:
		return strings.ToUpper(string(t))
	}
}

// String returns the wire value.
func (t ReportType) String() string {
	return string(t)
}

// Mode selects the audience of an explanation.
type Mode string

const (
	// ModePatient produces plain-language, reassurance-first explanations.
	ModePatient Mode = "patient"

	// ModeClinician produces terse, terminology-based educational summaries.
	ModeClinician Mode = "clinician"
)

// ParseMode maps a requested mode onto the two audiences.
// Only "clinician" selects the clinician audience; everything else is patient.
func ParseMode(s string) Mode {
	if s == string(ModeClinician) {
		return ModeClinician
	}
	return ModePatient
}

// String returns the wire value.
func (m Mode) String() string {
	return string(m)
}
