package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReportType(t *testing.T) {
	tests := []struct {
		in   string
		want ReportType
	}{
		{"ct", ReportTypeCT},
		{"MRI", ReportTypeMRI},
		{" xray ", ReportTypeXRay},
		{"Lab", ReportTypeLab},
		{"other", DefaultReportType},
		{"x-ray", DefaultReportType},
		{"unknown", DefaultReportType},
		{"", DefaultReportType},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseReportType(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestReportType_IsValid(t *testing.T) {
	for _, rt := range ReportTypes() {
		assert.True(t, rt.IsValid(), rt)
	}
	assert.False(t, ReportTypeUnknown.IsValid())
	assert.False(t, ReportType("pet").IsValid())
}

func TestReportType_DisplayName(t *testing.T) {
	assert.Equal(t, "CT Scan", ReportTypeCT.DisplayName())
	assert.Equal(t, "MRI", ReportTypeMRI.DisplayName())
	assert.Equal(t, "X-Ray", ReportTypeXRay.DisplayName())
	assert.Equal(t, "Lab Report", ReportTypeLab.DisplayName())
	assert.Equal(t, "X-Ray", ReportType("XRAY").DisplayName())
	assert.Equal(t, "UNKNOWN", ReportTypeUnknown.DisplayName())
	assert.Equal(t, "PET", ReportType("pet").DisplayName())
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeClinician, ParseMode("clinician"))
	assert.Equal(t, ModePatient, ParseMode("patient"))
	assert.Equal(t, ModePatient, ParseMode(""))
	assert.Equal(t, ModePatient, ParseMode("Clinician"))
	assert.Equal(t, ModePatient, ParseMode("doctor"))
}
