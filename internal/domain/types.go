package domain

import "time"

// User is a registered customer. Any user may also sell products.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Product is a catalog item owned by the user who listed it.
type Product struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	Price       Money
	ImagePath   string // URL path under the uploads prefix, e.g. "/images/123-abc.png"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductInput is the validated, user-editable part of a product.
type ProductInput struct {
	Title       string
	Description string
	Price       Money
}

// CartLine is a product in a cart with its quantity.
type CartLine struct {
	Product  Product
	Quantity int
}

// Subtotal returns price times quantity.
func (l CartLine) Subtotal() (Money, error) {
	return l.Product.Price.Times(l.Quantity)
}

// Cart is a user's mutable shopping cart.
type Cart struct {
	UserID int64
	Lines  []CartLine
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool { return len(c.Lines) == 0 }

// Total returns the sum of all line subtotals.
func (c Cart) Total() (Money, error) {
	var total Money
	for _, l := range c.Lines {
		sub, err := l.Subtotal()
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(sub); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// ItemCount returns the sum of all quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// OrderLine is an immutable snapshot of a purchased product.
type OrderLine struct {
	ProductID *int64 // nil once the product is deleted
	Title     string
	UnitPrice Money
	Quantity  int
}

// Subtotal returns unit price times quantity. Stored orders were totalled
// with SumLines, so their lines are known to fit.
func (l OrderLine) Subtotal() Money {
	return l.UnitPrice * Money(l.Quantity)
}

// SumLines totals order lines with overflow checking.
func SumLines(lines []OrderLine) (Money, error) {
	var total Money
	for _, l := range lines {
		sub, err := l.UnitPrice.Times(l.Quantity)
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(sub); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Checkout is the cart snapshot a hosted payment session was opened for.
// Completing the payment places an order for exactly these lines.
type Checkout struct {
	ID        string // payment session id
	UserID    int64
	Lines     []OrderLine
	Total     Money
	CreatedAt time.Time
}

// Order is a placed order. Orders are never modified after creation.
type Order struct {
	ID         int64
	Number     string // public order/invoice number
	UserID     int64
	Email      string
	PaymentRef string // hosted payment session id, empty for direct orders
	Lines      []OrderLine
	Total      Money
	CreatedAt  time.Time
}
