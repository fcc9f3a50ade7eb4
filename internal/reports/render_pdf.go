package reports

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pdfRowHeight  = 7.0
	pdfCardHeight = 14.0
)

// PDFRenderer lays the document out on A4 portrait pages.
type PDFRenderer struct{}

func (PDFRenderer) Render(w io.Writer, doc Document) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("storedesk", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	generated := doc.GeneratedAt.Format("2006-01-02 15:04")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Generated %s - page %d/{nb}", generated, pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	width := doc.TotalWidth()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(26, 54, 93)
	pdf.CellFormat(width, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(74, 85, 104)
	pdf.CellFormat(width, 6, tr("Period: "+doc.Period), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	renderCards(pdf, tr, doc.Cards, width)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(45, 55, 72)
	pdf.SetTextColor(255, 255, 255)
	for _, col := range doc.Columns {
		pdf.CellFormat(col.Width, pdfRowHeight+1, tr(col.Header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(45, 55, 72)
	if doc.Empty {
		pdf.SetFillColor(247, 250, 252)
		pdf.CellFormat(width, pdfRowHeight, tr(NoDataMessage), "1", 1, "C", true, 0, "")
	} else {
		for i, row := range doc.Rows {
			fill := i%2 == 1
			pdf.SetFillColor(247, 250, 252)
			for c, cell := range row {
				col := doc.Columns[c]
				pdf.CellFormat(col.Width, pdfRowHeight, tr(cell.Text), "1", 0, string(col.Align), fill, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(56, 161, 105)
	pdf.SetTextColor(255, 255, 255)
	for c, cell := range doc.Totals {
		col := doc.Columns[c]
		pdf.CellFormat(col.Width, pdfRowHeight+1, tr(cell.Text), "1", 0, string(col.Align), true, 0, "")
	}
	pdf.Ln(-1)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func renderCards(pdf *fpdf.Fpdf, tr func(string) string, cards []Card, width float64) {
	if len(cards) == 0 {
		return
	}
	cardWidth := width / float64(len(cards))
	x, y := pdf.GetXY()

	pdf.SetFillColor(230, 255, 250)
	pdf.SetTextColor(26, 54, 93)
	for i, card := range cards {
		pdf.SetXY(x+float64(i)*cardWidth, y)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(cardWidth, pdfCardHeight/2, tr(card.Label), "LTR", 2, "C", true, 0, "")
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(cardWidth, pdfCardHeight/2, tr(card.Value), "LBR", 0, "C", true, 0, "")
	}
	pdf.SetXY(x, y+pdfCardHeight)
}
