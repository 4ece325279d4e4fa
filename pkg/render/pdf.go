package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// pdfRowCap limits how many rows are rendered as body lines. The document is
// conformant-but-minimal: a title page with a sample of the data, not a
// typeset report.
const pdfRowCap = 10

// PDFRenderer renders datasets into a minimal paginated document.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render creates a PDF with a title, generation timestamp, record count, and
// up to pdfRowCap rows as plain text lines. An empty dataset is an error.
func (r *PDFRenderer) Render(data Dataset, title string) (*File, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	if len(data.Rows) == 0 {
		return nil, fmt.Errorf("pdf requires at least one row")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	// uncompressed streams keep the text layer greppable for consumers that
	// scan exports without a full PDF parser
	pdf.SetCompression(false)
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Records: %d", len(data.Rows)), "", 1, "", false, 0, "")
	pdf.Ln(4)

	limit := len(data.Rows)
	if limit > pdfRowCap {
		limit = pdfRowCap
	}
	for _, row := range data.Rows[:limit] {
		values := make([]string, 0, len(data.Headers))
		for _, header := range data.Headers {
			values = append(values, row[header])
		}
		pdf.CellFormat(0, 6, strings.Join(values, "  "), "", 1, "", false, 0, "")
	}
	if len(data.Rows) > limit {
		pdf.Ln(2)
		pdf.CellFormat(0, 6, fmt.Sprintf("... and %d more records", len(data.Rows)-limit), "", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return &File{Data: buf.Bytes(), Extension: "pdf", ContentType: ContentTypePDF}, nil
}
