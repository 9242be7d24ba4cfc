// Package payment creates and verifies hosted checkout sessions.
//
// The shop never sees card data: it asks a Gateway for a session covering
// the cart, redirects the customer to the session URL, and on return asks the
// gateway whether that session was paid. The session id doubles as the
// order's payment reference, so a paid session yields at most one order.
package payment

import (
	"context"
	"strconv"
	"strings"

	"github.com/roach88/storefront/internal/domain"
)

// SessionIDPlaceholder is substituted with the session id in SuccessURL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Status is the lifecycle state of a session.
type Status string

// Session states.
const (
	StatusOpen     Status = "open"
	StatusComplete Status = "complete"
	StatusExpired  Status = "expired"
)

// LineItem is one priced row of a checkout.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  domain.Money
	Quantity    int
}

// CheckoutRequest describes the session to create.
type CheckoutRequest struct {
	UserID     int64
	Email      string
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

// Total returns the sum of all items, or domain.ErrMoneyOverflow.
func (r CheckoutRequest) Total() (domain.Money, error) {
	var total domain.Money
	for _, it := range r.Items {
		sub, err := it.UnitAmount.Times(it.Quantity)
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(sub); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Session is a gateway-side checkout session.
type Session struct {
	ID     string
	URL    string
	UserID int64
	Status Status
	Paid   bool
	Total  domain.Money
}

// Gateway creates and looks up hosted checkout sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	Session(ctx context.Context, id string) (*Session, error)
}

// validateRequest checks req and returns its total.
func validateRequest(req CheckoutRequest) (domain.Money, error) {
	if len(req.Items) == 0 {
		return 0, domain.EmptyCart()
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 || it.UnitAmount <= 0 {
			return 0, domain.Invalid("items", "Invalid checkout line item")
		}
	}
	total, err := req.Total()
	if err != nil {
		return 0, domain.Invalid("items", "Checkout total is too large")
	}
	return total, nil
}

func userRef(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseUserRef(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
