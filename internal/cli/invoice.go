package cli

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/invoice"
)

// InvoiceOptions holds flags for the invoice command.
type InvoiceOptions struct {
	*RootOptions
	Output string
	Text   bool

	appOptions appOptions
}

// InvoiceResult reports where an invoice was written.
type InvoiceResult struct {
	OrderID int64  `json:"order_id"`
	Number  string `json:"number"`
	Path    string `json:"path"`
	Total   string `json:"total"`
}

func (r InvoiceResult) String() string {
	return fmt.Sprintf("Invoice for order #%d (%s) written to %s", r.OrderID, r.Total, r.Path)
}

// NewInvoiceCommand creates the invoice command.
func NewInvoiceCommand(rootOpts *RootOptions) *cobra.Command {
	return newInvoiceCommand(&InvoiceOptions{RootOptions: rootOpts})
}

func newInvoiceCommand(opts *InvoiceOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice <order-id>",
		Short: "Render the invoice of an order",
		Long: `Render an order's invoice as PDF (the same document customers download)
or as plain text. "-o -" writes to stdout.

Example:
  storefront invoice 42
  storefront invoice 42 -o /tmp/invoice.pdf
  storefront invoice 42 --text -o -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoice(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default invoice-<number>.pdf or .txt)")
	cmd.Flags().BoolVar(&opts.Text, "text", false, "render plain text instead of PDF")

	return cmd
}

func runInvoice(cmd *cobra.Command, opts *InvoiceOptions, arg string) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		_ = formatter.Error("E_VALIDATION", "invalid order id", arg)
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid order id %q", arg))
	}

	a, err := openApp(opts.RootOptions, opts.appOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	order, err := a.store.OrderByID(commandContext(cmd), id)
	if err != nil {
		if domain.IsNotFound(err) {
			_ = formatter.Error("E_NOT_FOUND", "order not found", id)
			return WrapExitError(ExitCommandError, fmt.Sprintf("order %d not found", id), err)
		}
		return WrapExitError(ExitFailure, "failed to load order", err)
	}

	inv := invoice.Build(order, a.cfg.Seller.Invoice())
	var buf bytes.Buffer
	if opts.Text {
		err = invoice.WriteText(&buf, inv)
	} else {
		err = invoice.WritePDF(&buf, inv)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render invoice", err)
	}

	path := opts.Output
	if path == "" {
		path = invoice.Filename(order.Number)
		if opts.Text {
			path = path[:len(path)-len(".pdf")] + ".txt"
		}
	}
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		_ = formatter.Error("E_WRITE", "failed to write invoice", err.Error())
		return WrapExitError(ExitCommandError, "failed to write invoice", err)
	}

	return formatter.Success(InvoiceResult{
		OrderID: order.ID,
		Number:  order.Number,
		Path:    path,
		Total:   inv.Total.String(),
	})
}
