package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/storefront/internal/domain"
)

// SaveCheckout records the cart snapshot a payment session was opened for.
// The total is recomputed from the lines.
func (s *Store) SaveCheckout(ctx context.Context, co domain.Checkout) (domain.Checkout, error) {
	if len(co.Lines) == 0 {
		return domain.Checkout{}, fmt.Errorf("save checkout: %w", domain.EmptyCart())
	}
	total, err := domain.SumLines(co.Lines)
	if err != nil {
		return domain.Checkout{}, fmt.Errorf("save checkout: %w", domain.Invalid("cart", "Order total is too large"))
	}
	co.Total = total
	co.CreatedAt = fromMillis(toMillis(co.CreatedAt))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Checkout{}, fmt.Errorf("save checkout: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO checkouts (id, user_id, total_cents, created_at) VALUES (?, ?, ?, ?)
	`, co.ID, co.UserID, int64(co.Total), toMillis(co.CreatedAt)); err != nil {
		if isUniqueViolation(err) {
			return domain.Checkout{}, fmt.Errorf("save checkout: %w", domain.Conflict("Checkout already recorded", err))
		}
		return domain.Checkout{}, fmt.Errorf("save checkout: %w", err)
	}
	for _, l := range co.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO checkout_items (checkout_id, product_id, title, unit_cents, quantity)
			VALUES (?, ?, ?, ?, ?)
		`, co.ID, nullID(l.ProductID), l.Title, int64(l.UnitPrice), l.Quantity); err != nil {
			return domain.Checkout{}, fmt.Errorf("save checkout: insert item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Checkout{}, fmt.Errorf("save checkout: commit: %w", err)
	}
	return co, nil
}

// CheckoutByID returns the snapshot recorded for a payment session.
func (s *Store) CheckoutByID(ctx context.Context, id string) (domain.Checkout, error) {
	co, err := checkoutByID(ctx, s.db, id)
	if err != nil {
		return domain.Checkout{}, fmt.Errorf("checkout by id: %w", notFound(err, "Checkout session"))
	}
	return co, nil
}

func checkoutByID(ctx context.Context, q querier, id string) (domain.Checkout, error) {
	var (
		co        = domain.Checkout{ID: id}
		total     int64
		createdAt int64
	)
	if err := q.QueryRowContext(ctx, `
		SELECT user_id, total_cents, created_at FROM checkouts WHERE id = ?
	`, id).Scan(&co.UserID, &total, &createdAt); err != nil {
		return domain.Checkout{}, err
	}
	co.Total = domain.Money(total)
	co.CreatedAt = fromMillis(createdAt)

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, title, unit_cents, quantity
		FROM checkout_items
		WHERE checkout_id = ?
		ORDER BY id ASC
	`, id)
	if err != nil {
		return domain.Checkout{}, fmt.Errorf("query checkout items: %w", err)
	}
	defer rows.Close()

	co.Lines = []domain.OrderLine{}
	for rows.Next() {
		var (
			l         domain.OrderLine
			productID sql.NullInt64
			unit      int64
		)
		if err := rows.Scan(&productID, &l.Title, &unit, &l.Quantity); err != nil {
			return domain.Checkout{}, fmt.Errorf("scan checkout item: %w", err)
		}
		if productID.Valid {
			pid := productID.Int64
			l.ProductID = &pid
		}
		l.UnitPrice = domain.Money(unit)
		co.Lines = append(co.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return domain.Checkout{}, fmt.Errorf("iterate checkout items: %w", err)
	}
	return co, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
