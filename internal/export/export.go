// Package export renders an already-filtered record set into downloadable
// tabular artifacts. Stateless transforms; nothing here touches the store.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"premisewatch/internal/access"
)

var header = []string{"Name", "Role", "Company", "Purpose", "Location", "Entry Time", "Status"}

func row(rec access.AccessRecord) []string {
	return []string{
		rec.SubjectName,
		string(rec.Role),
		rec.Company,
		rec.Purpose,
		rec.LocationName,
		rec.EntryTime.Format(time.RFC3339),
		string(rec.Status),
	}
}

// CSV writes the record set as comma-separated values.
func CSV(w io.Writer, records []access.AccessRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PDF writes the record set as a one-table landscape PDF.
func PDF(w io.Writer, records []access.AccessRecord) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	widths := []float64{45, 25, 40, 45, 40, 50, 30}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, rec := range records {
		for i, cell := range row(rec) {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

// Filename returns the date-stamped artifact name for the given extension.
func Filename(ext string, now time.Time) string {
	return "visitor_logs_" + now.Format("2006-01-02") + "." + ext
}
