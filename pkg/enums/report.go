package enums

import (
	"fmt"
	"strings"
)

// ReportType selects the dataset a report aggregates.
type ReportType string

const (
	ReportTypeSales ReportType = "sales"
	ReportTypeStock ReportType = "stock"
)

var validReportTypes = []ReportType{
	ReportTypeSales,
	ReportTypeStock,
}

func (t ReportType) String() string {
	return string(t)
}

func (t ReportType) IsValid() bool {
	for _, candidate := range validReportTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseReportType(value string) (ReportType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validReportTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report type %q", value)
}

// ReportFormat selects the document encoding.
type ReportFormat string

const (
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)

var validReportFormats = []ReportFormat{
	ReportFormatPDF,
	ReportFormatXLSX,
}

func (f ReportFormat) String() string {
	return string(f)
}

func (f ReportFormat) IsValid() bool {
	for _, candidate := range validReportFormats {
		if candidate == f {
			return true
		}
	}
	return false
}

// Extension is the file suffix written for the format.
func (f ReportFormat) Extension() string {
	return string(f)
}

// ContentType is the MIME type served on download.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Previewable reports whether the format can be rendered inline by a browser.
func (f ReportFormat) Previewable() bool {
	return f == ReportFormatPDF
}

// ParseReportFormat accepts "excel" as an alias of xlsx.
func ParseReportFormat(value string) (ReportFormat, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "excel" {
		return ReportFormatXLSX, nil
	}
	for _, candidate := range validReportFormats {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report format %q", value)
}
