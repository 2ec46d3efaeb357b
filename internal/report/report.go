// Package report renders a quality analysis as a downloadable PDF
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/gradefresh-dev/gradefresh/internal/apiclient"
)

// Report is everything printed on the PDF
type Report struct {
	Prediction  apiclient.Prediction
	FileName    string
	InspectedBy string
	GeneratedAt time.Time
}

// DownloadName suggests a download name like gradefresh-report-20251017-143202.pdf
func (r Report) DownloadName() string {
	return fmt.Sprintf("gradefresh-report-%s.pdf", r.GeneratedAt.UTC().Format("20060102-150405"))
}

// Rows returns the label/value pairs of the results table
func (r Report) Rows() [][2]string {
	p := r.Prediction
	export := "Not suitable for export"
	if p.ExportSuitable {
		export = "Suitable for export"
	}

	rows := [][2]string{
		{"Fruit class", humanize(p.ClassLabel)},
		{"Confidence", fmt.Sprintf("%.1f%%", confidencePercent(p.Confidence))},
		{"Quality code", p.QualityCode},
		{"Quality status", p.QualityStatus},
		{"Export", export},
	}
	if r.FileName != "" {
		rows = append([][2]string{{"Image", r.FileName}}, rows...)
	}
	if r.InspectedBy != "" {
		rows = append(rows, [2]string{"Requested by", r.InspectedBy})
	}
	return rows
}

// Render writes the PDF to w
func Render(w io.Writer, r Report) error {
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("GradeFresh Quality Report", true)
	pdf.SetAuthor("GradeFresh", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(3, 100, 36)
	pdf.CellFormat(0, 12, "GradeFresh Quality Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetTextColor(0, 0, 0)
	for _, row := range r.Rows() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(50, 9, tr(row[0]), "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 9, tr(row[1]), "B", 1, "L", false, 0, "")
	}

	if r.Prediction.Description != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Assessment", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(r.Prediction.Description), "", "L", false)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.MultiCell(0, 4, "Automated assessment from an uploaded image. Confirm critical grading decisions with a physical inspection.", "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// confidencePercent accepts either a 0-1 score or a 0-100 percentage
func confidencePercent(c float64) float64 {
	if c <= 1 {
		return c * 100
	}
	return c
}

func humanize(label string) string {
	s := strings.ReplaceAll(label, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
