package invoice

import (
	"fmt"
	"time"

	"github.com/roach88/storefront/internal/domain"
)

// Seller is the issuing business printed in the invoice header.
type Seller struct {
	Name    string
	Address []string
	Email   string
}

// DefaultSeller is used when no seller is configured.
var DefaultSeller = Seller{
	Name:    "Storefront",
	Address: []string{"123 Business Street", "City, State 12345"},
	Email:   "contact@storefront.example",
}

// Row is one invoice line.
type Row struct {
	Title    string
	Quantity int
	Unit     domain.Money
	Total    domain.Money
}

// Invoice is the printable form of an order.
type Invoice struct {
	Number   string
	Date     time.Time
	Customer string
	Seller   Seller
	Rows     []Row
	Total    domain.Money
}

const unknownProduct = "Unknown Product"

// Build derives an invoice from order. The total is recomputed from the rows.
func Build(order domain.Order, seller Seller) Invoice {
	inv := Invoice{
		Number:   order.Number,
		Date:     order.CreatedAt,
		Customer: order.Email,
		Seller:   seller,
		Rows:     make([]Row, 0, len(order.Lines)),
	}
	for _, l := range order.Lines {
		title := l.Title
		if title == "" {
			title = unknownProduct
		}
		row := Row{Title: title, Quantity: l.Quantity, Unit: l.UnitPrice, Total: l.Subtotal()}
		inv.Rows = append(inv.Rows, row)
		inv.Total += row.Total
	}
	return inv
}

// Filename is the download name for an invoice.
func Filename(number string) string {
	return "invoice-" + number + ".pdf"
}

// DateString formats the invoice date as M/D/YYYY.
func (inv Invoice) DateString() string {
	d := inv.Date
	return fmt.Sprintf("%d/%d/%d", int(d.Month()), d.Day(), d.Year())
}
