package invoice

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Layout in points on a Letter page.
const (
	marginX    = 50.0
	rightEdge  = 550.0
	colQty     = 300.0
	colPrice   = 380.0
	colTotal   = 480.0
	titleWidth = 240.0
	rowHeight  = 25.0
	pageBottom = 700.0
)

// WritePDF renders inv as a PDF document.
func WritePDF(w io.Writer, inv Invoice) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(inv.Date)
	pdf.SetModificationDate(inv.Date)
	pdf.SetTitle("Invoice "+inv.Number, true)
	pdf.SetAuthor(inv.Seller.Name, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	text(pdf, marginX, 50, "INVOICE")

	pdf.SetFont("Helvetica", "", 12)
	y := 80.0
	header := make([]string, 0, len(inv.Seller.Address)+2)
	header = append(header, inv.Seller.Name)
	header = append(header, inv.Seller.Address...)
	header = append(header, inv.Seller.Email)
	for _, line := range header {
		text(pdf, marginX, y, tr(line))
		y += 15
	}

	text(pdf, colQty, 80, "Invoice #:")
	text(pdf, 370, 80, tr(inv.Number))
	text(pdf, colQty, 95, "Order Date:")
	text(pdf, 370, 95, inv.DateString())
	text(pdf, colQty, 110, "Customer:")
	text(pdf, 370, 110, tr(inv.Customer))

	pdf.Line(marginX, 160, rightEdge, 160)

	y = 180
	pdf.SetFont("Helvetica", "B", 14)
	text(pdf, marginX, y, "Product")
	text(pdf, colQty, y, "Quantity")
	text(pdf, colPrice, y, "Price")
	text(pdf, colTotal, y, "Total")
	pdf.Line(marginX, y+20, rightEdge, y+20)

	y += 35
	pdf.SetFont("Helvetica", "", 12)
	for _, r := range inv.Rows {
		if y > pageBottom {
			pdf.AddPage()
			y = 50
		}
		text(pdf, marginX, y, fit(pdf, tr(r.Title), titleWidth))
		text(pdf, colQty, y, fmt.Sprint(r.Quantity))
		text(pdf, colPrice, y, r.Unit.String())
		text(pdf, colTotal, y, r.Total.String())
		y += rowHeight
	}

	y += 20
	if y+90 > pageBottom+50 {
		pdf.AddPage()
		y = 50
	}
	pdf.Line(350, y, rightEdge, y)
	y += 15
	pdf.SetFont("Helvetica", "B", 14)
	text(pdf, colPrice, y, "Total Amount:")
	text(pdf, colTotal, y, inv.Total.String())

	y += 60
	pdf.SetFont("Helvetica", "", 10)
	text(pdf, marginX, y, "Thank you for your business!")
	text(pdf, marginX, y+15, tr("For any questions, please contact us at "+inv.Seller.Email))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}
	return nil
}

// text places s with its top-left corner at (x, y), matching the
// top-anchored coordinates used for the layout constants.
func text(pdf *fpdf.Fpdf, x, y float64, s string) {
	pdf.SetXY(x, y)
	pdf.CellFormat(0, 14, s, "", 0, "L", false, 0, "")
}

// fit truncates s with an ellipsis so it renders within width. s is already
// translated to the single-byte core font encoding.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	const ellipsis = "..."
	n := len(s)
	for n > 0 && pdf.GetStringWidth(s[:n]+ellipsis) > width {
		n--
	}
	return s[:n] + ellipsis
}
