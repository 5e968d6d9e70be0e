package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/kiranshivaraju/errortracker/pkg/models"
)

const (
	reportTitle    = "Error Report - ErrorTracker"
	titleMaxRunes  = 30
	titleKeepRunes = 27
	tableTop       = 70.0
	rowHeight      = 7.0
	pageBottom     = 280.0
)

var (
	tableHeader = []string{"Title", "Severity", "Status", "System", "Count", "Created"}
	tableWidths = []float64{50, 25, 25, 30, 20, 25}
)

// report is the layout-independent content of the PDF.
type report struct {
	Title     string
	Generated string
	Summary   []string
	Rows      [][]string
}

func buildReport(records []models.ErrorRecord, now time.Time) report {
	stats := models.ComputeStats(records)
	rep := report{
		Title:     reportTitle,
		Generated: "Generated on: " + now.Format("2006-01-02 15:04"),
		Summary: []string{
			fmt.Sprintf("Total Errors: %d", stats.Total),
			fmt.Sprintf("Critical: %d | High: %d | Medium: %d | Low: %d",
				stats.Critical, stats.High, stats.Medium, stats.Low),
			fmt.Sprintf("Open: %d | Investigating: %d | Resolved: %d | Closed: %d",
				stats.Open, stats.Investigating, stats.Resolved, stats.Closed),
		},
		Rows: make([][]string, 0, len(records)),
	}
	for i := range records {
		r := &records[i]
		rep.Rows = append(rep.Rows, []string{
			Truncate(r.Title, titleMaxRunes, titleKeepRunes),
			string(r.Severity),
			string(r.Status),
			r.System,
			strconv.Itoa(r.Occurrences),
			formatDate(r.Timestamp),
		})
	}
	return rep
}

// Truncate shortens s to keep runes plus "..." when it is longer than max runes.
func Truncate(s string, max, keep int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:keep]) + "..."
}

// WritePDF renders an A4 report: title block, generation time, aggregate
// counts and a paginated table of records.
func WritePDF(w io.Writer, records []models.ErrorRecord, now time.Time) error {
	pdf := renderPDF(records, now)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// renderPDF lays the report out. Page breaks are placed here so that every
// page repeats the table header; fpdf's own break is off.
func renderPDF(records []models.ErrorRecord, now time.Time) *fpdf.Fpdf {
	rep := buildReport(records, now)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(now)
	pdf.SetTitle(rep.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(20, 20, rep.Title)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(20, 30, rep.Generated)
	for i, line := range rep.Summary {
		pdf.Text(20, 40+float64(i)*10, line)
	}

	pdf.SetY(tableTop)
	drawHeader(pdf)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range rep.Rows {
		if pdf.GetY()+rowHeight > pageBottom {
			pdf.AddPage()
			drawHeader(pdf)
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetTextColor(0, 0, 0)
		}
		for i, cell := range row {
			pdf.CellFormat(tableWidths[i], rowHeight, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf
}

func drawHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range tableHeader {
		pdf.CellFormat(tableWidths[i], rowHeight, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}
