package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/storefront/internal/domain"
)

// cartLinesQuery joins cart items with their products in insertion order.
const cartLinesQuery = `
	SELECT p.id, p.owner_id, p.title, p.description, p.price_cents, p.image_path,
	       p.created_at, p.updated_at, ci.quantity
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.user_id = ?
	ORDER BY ci.added_at ASC, ci.id ASC
`

// Cart returns userID's cart with live product data.
// An empty cart has a non-nil, zero-length Lines slice.
func (s *Store) Cart(ctx context.Context, userID int64) (domain.Cart, error) {
	lines, err := readCartLines(ctx, s.db, userID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("cart: %w", err)
	}
	return domain.Cart{UserID: userID, Lines: lines}, nil
}

// AddToCart adds quantity of productID to userID's cart, merging with an
// existing line for the same product. Returns the line's new quantity.
// A missing product is reported as NOT_FOUND; a line above
// domain.MaxLineQuantity as VALIDATION.
func (s *Store) AddToCart(ctx context.Context, userID, productID int64, quantity int, now time.Time) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("add to cart: %w", domain.Invalid("quantity", "Quantity must be positive"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add to cart: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE((SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = p.id), 0)
		FROM products p WHERE p.id = ?
	`, userID, productID).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("add to cart: %w", notFound(err, "Product"))
	}
	if quantity > domain.MaxLineQuantity-current {
		return 0, fmt.Errorf("add to cart: %w", quantityTooLarge())
	}

	var newQuantity int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, product_id) DO UPDATE SET quantity = quantity + excluded.quantity
		RETURNING quantity
	`, userID, productID, quantity, toMillis(now)).Scan(&newQuantity)
	if err != nil {
		return 0, fmt.Errorf("add to cart: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add to cart: commit: %w", err)
	}
	return newQuantity, nil
}

// SetCartQuantity sets the quantity of an existing cart line. A quantity of
// zero or less removes the line.
func (s *Store) SetCartQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, userID, productID)
	}
	if quantity > domain.MaxLineQuantity {
		return fmt.Errorf("set cart quantity: %w", quantityTooLarge())
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE cart_items SET quantity = ?
		WHERE user_id = ? AND product_id = ?
	`, quantity, userID, productID)
	if err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("set cart quantity: %w", domain.NotFound("Cart item"))
	}
	return nil
}

func quantityTooLarge() error {
	return domain.Invalid("quantity", fmt.Sprintf("You can add at most %d of a product", domain.MaxLineQuantity))
}

// RemoveFromCart deletes productID's line from userID's cart.
// Removing a product that is not in the cart is not an error.
func (s *Store) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE user_id = ? AND product_id = ?
	`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	return nil
}

// ClearCart deletes every line of userID's cart.
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// readCartLines runs cartLinesQuery on q (a *sql.DB or *sql.Tx).
func readCartLines(ctx context.Context, q querier, userID int64) ([]domain.CartLine, error) {
	rows, err := q.QueryContext(ctx, cartLinesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var (
			line                 domain.CartLine
			price                int64
			createdAt, updatedAt int64
		)
		p := &line.Product
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &price, &p.ImagePath,
			&createdAt, &updatedAt, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		p.Price = domain.Money(price)
		p.CreatedAt = fromMillis(createdAt)
		p.UpdatedAt = fromMillis(updatedAt)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}
	return lines, nil
}
