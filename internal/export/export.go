// Package export serializes record sets into downloadable CSV and PDF documents.
// Both writers are pure: they read the records they are given and nothing else.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// Format is an export target.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat maps a query value to a Format. Empty selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Write renders records in format f.
func Write(w io.Writer, f Format, records []models.ErrorRecord, now time.Time) error {
	if f == FormatPDF {
		return WritePDF(w, records, now)
	}
	return WriteCSV(w, records)
}

// Scope says whether an export covers every record or only the filtered view.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeFiltered Scope = "filtered"
)

// ParseScope maps a query value to a Scope. Empty selects ScopeFiltered.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeFiltered:
		return ScopeFiltered, nil
	case ScopeAll:
		return ScopeAll, nil
	}
	return "", fmt.Errorf("unknown export scope %q", s)
}

// Filename names the artifact, e.g. errors-filtered-2024-03-01.csv.
func Filename(f Format, scope Scope, now time.Time) string {
	return fmt.Sprintf("errors-%s-%s.%s", scope, now.Format(dateLayout), f)
}

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
