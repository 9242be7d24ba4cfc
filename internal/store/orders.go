package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/storefront/internal/domain"
)

// querier is the subset of *sql.DB and *sql.Tx used by shared readers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PlaceOrderParams identifies the order being placed.
type PlaceOrderParams struct {
	UserID int64
	Email  string

	// Number is the public order number (unique).
	Number string

	// PaymentRef is the hosted payment session id. Empty for direct orders.
	// When set, the order is built from the checkout snapshot saved for
	// PaymentRef, and placing the same PaymentRef twice returns the first
	// order.
	PaymentRef string

	// PaidTotal is the amount collected for PaymentRef. It must equal the
	// snapshot total.
	PaidTotal domain.Money

	Now time.Time
}

// PlaceOrder atomically creates an order.
//
// A direct order (no PaymentRef) converts the user's whole cart: in one
// transaction it reads the cart lines with their current products, inserts
// the order and one order item per line (snapshotting title and unit
// price), and deletes the cart lines.
//
// A checkout order is built from the lines paid for, not the live cart.
// The paid quantities are then taken out of the cart, so anything added
// after the payment session opened stays there.
//
// Returns:
//   - order: the placed order, or the existing order for a repeated PaymentRef
//   - created: false when an order with PaymentRef already existed
//   - error: EMPTY_CART when a direct order finds no cart lines,
//     CONFLICT when PaidTotal differs from the checkout snapshot
func (s *Store) PlaceOrder(ctx context.Context, params PlaceOrderParams) (order domain.Order, created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("place order: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Step 1: a payment that already produced an order is not charged twice.
	if params.PaymentRef != "" {
		existing, err := orderByPaymentRef(ctx, tx, params.PaymentRef)
		if err == nil {
			if err := tx.Commit(); err != nil {
				return domain.Order{}, false, fmt.Errorf("place order: commit (existing): %w", err)
			}
			return existing, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, false, fmt.Errorf("place order: lookup payment ref: %w", err)
		}
	}

	// Step 2: collect the lines being bought.
	var lines []domain.OrderLine
	if params.PaymentRef != "" {
		lines, err = paidLines(ctx, tx, params)
	} else {
		lines, err = cartOrderLines(ctx, tx, params.UserID)
	}
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("place order: %w", err)
	}
	total, err := domain.SumLines(lines)
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("place order: %w", domain.Invalid("cart", "Order total is too large"))
	}

	order = domain.Order{
		Number:     params.Number,
		UserID:     params.UserID,
		Email:      params.Email,
		PaymentRef: params.PaymentRef,
		CreatedAt:  fromMillis(toMillis(params.Now)),
		Lines:      lines,
		Total:      total,
	}

	// Step 3: write the order header.
	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders (number, user_id, email, payment_ref, total_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		order.Number,
		order.UserID,
		order.Email,
		nullString(order.PaymentRef),
		int64(order.Total),
		toMillis(order.CreatedAt),
	)
	if err != nil {
		switch column, _ := uniqueViolation(err); column {
		case "orders.number":
			return domain.Order{}, false, fmt.Errorf("place order: %w", domain.Conflict("Order number already in use", err))
		case "orders.payment_ref":
			return domain.Order{}, false, fmt.Errorf("place order: %w", domain.Conflict("Payment already recorded", err))
		}
		return domain.Order{}, false, fmt.Errorf("place order: insert order: %w", err)
	}
	order.ID, err = result.LastInsertId()
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("place order: last insert id: %w", err)
	}

	// Step 4: copy the lines into order items.
	for _, l := range order.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, title, unit_cents, quantity)
			VALUES (?, ?, ?, ?, ?)
		`, order.ID, nullID(l.ProductID), l.Title, int64(l.UnitPrice), l.Quantity)
		if err != nil {
			return domain.Order{}, false, fmt.Errorf("place order: insert item: %w", err)
		}
	}

	// Step 5: take the purchased lines out of the cart.
	if params.PaymentRef == "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, params.UserID); err != nil {
			return domain.Order{}, false, fmt.Errorf("place order: clear cart: %w", err)
		}
	} else if err := subtractPaidLines(ctx, tx, params.UserID, params.PaymentRef, order.Lines); err != nil {
		return domain.Order{}, false, fmt.Errorf("place order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, false, fmt.Errorf("place order: commit: %w", err)
	}

	return order, true, nil
}

// cartOrderLines snapshots userID's cart as order lines.
func cartOrderLines(ctx context.Context, tx *sql.Tx, userID int64) ([]domain.OrderLine, error) {
	cart, err := readCartLines(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, domain.EmptyCart()
	}
	lines := make([]domain.OrderLine, 0, len(cart))
	for _, l := range cart {
		productID := l.Product.ID
		lines = append(lines, domain.OrderLine{
			ProductID: &productID,
			Title:     l.Product.Title,
			UnitPrice: l.Product.Price,
			Quantity:  l.Quantity,
		})
	}
	return lines, nil
}

// paidLines loads the checkout snapshot for params.PaymentRef and checks it
// against the buyer and the amount paid.
func paidLines(ctx context.Context, tx *sql.Tx, params PlaceOrderParams) ([]domain.OrderLine, error) {
	co, err := checkoutByID(ctx, tx, params.PaymentRef)
	if err != nil {
		return nil, notFound(err, "Checkout session")
	}
	if co.UserID != params.UserID {
		return nil, domain.Forbidden("This checkout belongs to another account.")
	}
	if co.Total != params.PaidTotal {
		return nil, domain.Conflict("Payment amount does not match the checkout.",
			fmt.Errorf("paid %s, checkout %s", params.PaidTotal, co.Total))
	}
	return co.Lines, nil
}

// subtractPaidLines removes the paid quantities from userID's cart and
// drops the checkout snapshot.
func subtractPaidLines(ctx context.Context, tx *sql.Tx, userID int64, checkoutID string, lines []domain.OrderLine) error {
	for _, l := range lines {
		if l.ProductID == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM cart_items WHERE user_id = ? AND product_id = ? AND quantity <= ?
		`, userID, *l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("remove paid line: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE cart_items SET quantity = quantity - ? WHERE user_id = ? AND product_id = ?
		`, l.Quantity, userID, *l.ProductID); err != nil {
			return fmt.Errorf("reduce paid line: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkouts WHERE id = ?`, checkoutID); err != nil {
		return fmt.Errorf("drop checkout: %w", err)
	}
	return nil
}

// OrderByID returns an order with its lines.
func (s *Store) OrderByID(ctx context.Context, id int64) (domain.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if err != nil {
		return domain.Order{}, fmt.Errorf("order by id: %w", notFound(err, "Order"))
	}
	if err := loadOrderLines(ctx, s.db, []*domain.Order{&o}); err != nil {
		return domain.Order{}, fmt.Errorf("order by id: %w", err)
	}
	return o, nil
}

// OrderByNumber returns an order with its lines by public number.
func (s *Store) OrderByNumber(ctx context.Context, number string) (domain.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = ?`, number))
	if err != nil {
		return domain.Order{}, fmt.Errorf("order by number: %w", notFound(err, "Order"))
	}
	if err := loadOrderLines(ctx, s.db, []*domain.Order{&o}); err != nil {
		return domain.Order{}, fmt.Errorf("order by number: %w", err)
	}
	return o, nil
}

// ListOrders returns a page of userID's orders with their lines, newest first.
func (s *Store) ListOrders(ctx context.Context, userID int64, offset, limit int) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	// Release the single connection before the next query.
	rows.Close()

	ptrs := make([]*domain.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := loadOrderLines(ctx, s.db, ptrs); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// CountOrders returns how many orders userID has placed.
func (s *Store) CountOrders(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

const orderColumns = `id, number, user_id, email, payment_ref, total_cents, created_at`

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o          domain.Order
		paymentRef sql.NullString
		total      int64
		createdAt  int64
	)
	if err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Email, &paymentRef, &total, &createdAt); err != nil {
		return domain.Order{}, err
	}
	o.PaymentRef = paymentRef.String
	o.Total = domain.Money(total)
	o.CreatedAt = fromMillis(createdAt)
	o.Lines = []domain.OrderLine{}
	return o, nil
}

func orderByPaymentRef(ctx context.Context, q querier, ref string) (domain.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_ref = ?`, ref))
	if err != nil {
		return domain.Order{}, err
	}
	if err := loadOrderLines(ctx, q, []*domain.Order{&o}); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// loadOrderLines fills Lines for each order, in insertion order.
func loadOrderLines(ctx context.Context, q querier, orders []*domain.Order) error {
	for _, o := range orders {
		rows, err := q.QueryContext(ctx, `
			SELECT product_id, title, unit_cents, quantity
			FROM order_items
			WHERE order_id = ?
			ORDER BY id ASC
		`, o.ID)
		if err != nil {
			return fmt.Errorf("query order items: %w", err)
		}

		lines := []domain.OrderLine{}
		for rows.Next() {
			var (
				l         domain.OrderLine
				productID sql.NullInt64
				unit      int64
			)
			if err := rows.Scan(&productID, &l.Title, &unit, &l.Quantity); err != nil {
				rows.Close()
				return fmt.Errorf("scan order item: %w", err)
			}
			if productID.Valid {
				id := productID.Int64
				l.ProductID = &id
			}
			l.UnitPrice = domain.Money(unit)
			lines = append(lines, l)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterate order items: %w", err)
		}
		o.Lines = lines
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
