package invoice

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText renders inv as aligned plain text.
func WriteText(w io.Writer, inv Invoice) error {
	var b strings.Builder
	fmt.Fprintf(&b, "INVOICE %s\n", inv.Number)
	fmt.Fprintf(&b, "Order Date: %s\n", inv.DateString())
	fmt.Fprintf(&b, "Customer:   %s\n\n", inv.Customer)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Product\tQuantity\tPrice\tTotal\t")
	for _, r := range inv.Rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", r.Title, r.Quantity, r.Unit, r.Total)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(&b, "\nTotal Amount: %s\n\n", inv.Total)
	fmt.Fprintf(&b, "Thank you for your business!\n")
	fmt.Fprintf(&b, "%s, %s\n", inv.Seller.Name, inv.Seller.Email)

	_, err := io.WriteString(w, b.String())
	return err
}

// Text returns WriteText's output as a string.
func Text(inv Invoice) string {
	var b strings.Builder
	_ = WriteText(&b, inv)
	return b.String()
}
