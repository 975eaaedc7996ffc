package ticket

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer lays a Document out on a single A4 page.
type PDFRenderer struct {
	compress bool
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{compress: true}
}

// NewUncompressedPDFRenderer keeps content streams readable, which makes the
// output greppable.
func NewUncompressedPDFRenderer() *PDFRenderer {
	return &PDFRenderer{compress: false}
}

func (r *PDFRenderer) ContentType() string {
	return ContentTypePDF
}

func (r *PDFRenderer) Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(fmt.Sprintf("%s #%d", doc.Title, doc.BookingID), true)
	pdf.SetCreator(doc.Title, true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetTextColor(2, 132, 199)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 12, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetTextColor(68, 68, 68)
	pdf.SetFont("Helvetica", "U", 14)
	pdf.CellFormat(0, 10, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetTextColor(51, 51, 51)
	for _, section := range doc.Sections {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(section.Heading), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		for _, line := range section.Lines {
			pdf.CellFormat(45, 7, tr(line.Label+":"), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, tr(line.Value), "", 1, "L", false, 0, "")
		}
		pdf.Ln(5)
	}

	pdf.Ln(10)
	pdf.SetTextColor(136, 136, 136)
	pdf.SetFont("Helvetica", "", 9)
	for _, text := range doc.Footer {
		pdf.MultiCell(0, 5, tr(text), "", "C", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
