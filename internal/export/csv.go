package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/errortracker/pkg/models"
)

// TagSeparator joins tags inside the single Tags column.
const TagSeparator = "; "

// CSVHeader is the fixed column order of the CSV export.
var CSVHeader = []string{
	"ID",
	"Title",
	"Description",
	"Severity",
	"Status",
	"System",
	"Error Code",
	"Assigned To",
	"Tags",
	"Occurrences",
	"Created At",
	"Last Occurrence",
	"Resolved At",
}

// CSVRow renders one record in CSVHeader order, unquoted.
func CSVRow(r *models.ErrorRecord) []string {
	resolved := ""
	if r.ResolvedAt != nil {
		resolved = formatDate(*r.ResolvedAt)
	}
	return []string{
		r.ID.String(),
		r.Title,
		r.Description,
		string(r.Severity),
		string(r.Status),
		r.System,
		deref(r.ErrorCode),
		deref(r.AssignedTo),
		strings.Join(r.Tags, TagSeparator),
		strconv.Itoa(r.Occurrences),
		formatDate(r.Timestamp),
		formatDate(r.LastOccurrence),
		resolved,
	}
}

// WriteCSV writes a header row plus one row per record. Every field is wrapped
// in double quotes with embedded quotes doubled, so the output re-imports
// unchanged under RFC 4180 parsing.
func WriteCSV(w io.Writer, records []models.ErrorRecord) error {
	bw := bufio.NewWriter(w)
	writeRow(bw, CSVHeader)
	for i := range records {
		writeRow(bw, CSVRow(&records[i]))
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
