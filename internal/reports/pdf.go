package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFReport is a landscape A4 document made of titled sections and tables.
type PDFReport struct {
	pdf       *gofpdf.Fpdf
	title     string
	generated time.Time
	tr        func(string) string
}

func NewPDFReport(title string, generated time.Time) *PDFReport {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 15)

	r := &PDFReport{
		pdf:       pdf,
		title:     title,
		generated: generated,
		// Core fonts are cp1252; clause labels contain en dashes.
		tr: pdf.UnicodeTranslatorFromDescriptor(""),
	}

	r.addHeader()
	return r
}

func (r *PDFReport) addHeader() {
	r.pdf.AddPage()

	r.pdf.SetFont("Arial", "B", 18)
	r.pdf.SetTextColor(33, 37, 41)
	r.pdf.CellFormat(0, 12, r.tr(r.title), "", 1, "C", false, 0, "")

	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetTextColor(108, 117, 125)
	r.pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", r.generated.Format("January 2, 2006 3:04 PM")), "", 1, "C", false, 0, "")

	r.pdf.Ln(6)
}

func (r *PDFReport) AddSection(title string) {
	r.pdf.SetFont("Arial", "B", 13)
	r.pdf.SetTextColor(33, 37, 41)
	r.pdf.SetFillColor(240, 240, 240)
	r.pdf.CellFormat(0, 9, r.tr(title), "", 1, "L", true, 0, "")
	r.pdf.Ln(3)
}

func (r *PDFReport) AddParagraph(text string) {
	r.pdf.SetFont("Arial", "", 10)
	r.pdf.SetTextColor(33, 37, 41)
	r.pdf.MultiCell(0, 5, r.tr(text), "", "L", false)
	r.pdf.Ln(3)
}

// AddTable draws a striped table. widths are in millimetres and must match
// headers; a nil widths splits the page evenly. Cells are cut to fit one line.
func (r *PDFReport) AddTable(headers []string, widths []float64, rows [][]string) {
	if widths == nil {
		pageWidth, _ := r.pdf.GetPageSize()
		left, _, right, _ := r.pdf.GetMargins()
		w := (pageWidth - left - right) / float64(len(headers))
		widths = make([]float64, len(headers))
		for i := range widths {
			widths[i] = w
		}
	}

	r.pdf.SetFont("Arial", "B", 8)
	r.pdf.SetFillColor(52, 58, 64)
	r.pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		r.pdf.CellFormat(widths[i], 7, r.tr(h), "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Arial", "", 8)
	r.pdf.SetTextColor(33, 37, 41)
	fill := false
	for _, row := range rows {
		if fill {
			r.pdf.SetFillColor(248, 249, 250)
		} else {
			r.pdf.SetFillColor(255, 255, 255)
		}
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			r.pdf.CellFormat(widths[i], 6, r.fit(cell, widths[i]-2), "1", 0, "L", true, 0, "")
		}
		r.pdf.Ln(-1)
		fill = !fill
	}
	r.pdf.Ln(4)
}

// AddSummaryTable draws label/value pairs in two columns.
func (r *PDFReport) AddSummaryTable(pairs [][2]string) {
	r.pdf.SetFont("Arial", "", 10)
	for _, p := range pairs {
		r.pdf.SetFont("Arial", "B", 10)
		r.pdf.CellFormat(70, 7, r.tr(p[0]), "", 0, "L", false, 0, "")
		r.pdf.SetFont("Arial", "", 10)
		r.pdf.CellFormat(0, 7, r.tr(p[1]), "", 1, "L", false, 0, "")
	}
	r.pdf.Ln(4)
}

func (r *PDFReport) AddFooter(text string) {
	r.pdf.SetFooterFunc(func() {
		r.pdf.SetY(-12)
		r.pdf.SetFont("Arial", "I", 8)
		r.pdf.SetTextColor(128, 128, 128)
		r.pdf.CellFormat(0, 8, fmt.Sprintf("%s - Page %d", r.tr(text), r.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}

func (r *PDFReport) Output() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fit shortens s with a trailing "..." until it is at most width mm wide.
func (r *PDFReport) fit(s string, width float64) string {
	s = r.tr(s)
	if r.pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && r.pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
