package cli

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/validate"
)

// OrdersOptions holds flags for the orders command.
type OrdersOptions struct {
	*RootOptions
	Page int

	appOptions appOptions
}

// OrdersResult is one page of a customer's orders.
type OrdersResult struct {
	Email      string        `json:"email"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Orders     []OrderResult `json:"orders"`
}

// OrderResult summarizes one order.
type OrderResult struct {
	ID         int64             `json:"id"`
	Number     string            `json:"number"`
	PaymentRef string            `json:"payment_ref,omitempty"`
	Total      string            `json:"total"`
	CreatedAt  time.Time         `json:"created_at"`
	Lines      []OrderLineResult `json:"lines"`
}

// OrderLineResult is one line of an order.
type OrderLineResult struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func (r OrdersResult) String() string {
	if len(r.Orders) == 0 {
		return fmt.Sprintf("No orders for %s", r.Email)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Orders for %s (page %d of %d)\n", r.Email, r.Page, r.TotalPages)
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tDATE\tTOTAL\tITEMS")
	for _, o := range r.Orders {
		items := make([]string, 0, len(o.Lines))
		for _, l := range o.Lines {
			items = append(items, fmt.Sprintf("%s (%d)", l.Title, l.Quantity))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			o.ID, o.Number, o.CreatedAt.Format("2006-01-02"), o.Total, strings.Join(items, ", "))
	}
	tw.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// NewOrdersCommand creates the orders command.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	return newOrdersCommand(&OrdersOptions{RootOptions: rootOpts})
}

func newOrdersCommand(opts *OrdersOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders <email>",
		Short: "List a customer's orders",
		Long: `List the orders placed by an account, newest first, one page at a time.

Example:
  storefront orders buyer@example.com
  storefront orders buyer@example.com --page 2 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrders(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")

	return cmd
}

func runOrders(cmd *cobra.Command, opts *OrdersOptions, email string) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	a, err := openApp(opts.RootOptions, opts.appOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	user, err := lookupUser(cmd, formatter, a, email)
	if err != nil {
		return err
	}

	orders, page, err := a.shop.Orders(ctx, user.ID, opts.Page)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list orders", err)
	}

	result := OrdersResult{
		Email:      user.Email,
		Page:       page.Current,
		TotalPages: page.Last(),
		Orders:     make([]OrderResult, 0, len(orders)),
	}
	for _, o := range orders {
		result.Orders = append(result.Orders, orderResult(o))
	}
	return formatter.Success(result)
}

// lookupUser resolves an account by e-mail; unknown accounts are a command error.
func lookupUser(cmd *cobra.Command, formatter *OutputFormatter, a *app, email string) (domain.User, error) {
	u, err := a.store.UserByEmail(commandContext(cmd), validate.Email(email))
	if err == nil {
		return u, nil
	}
	if domain.IsNotFound(err) {
		_ = formatter.Error("E_NOT_FOUND", "unknown user", email)
		return domain.User{}, WrapExitError(ExitCommandError, fmt.Sprintf("unknown user %s", email), err)
	}
	return domain.User{}, WrapExitError(ExitFailure, "failed to look up user", err)
}

func orderResult(o domain.Order) OrderResult {
	r := OrderResult{
		ID:         o.ID,
		Number:     o.Number,
		PaymentRef: o.PaymentRef,
		Total:      o.Total.String(),
		CreatedAt:  o.CreatedAt,
		Lines:      make([]OrderLineResult, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		r.Lines = append(r.Lines, OrderLineResult{Title: l.Title, Quantity: l.Quantity, UnitPrice: l.UnitPrice.String()})
	}
	return r
}
