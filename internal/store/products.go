package store

import (
	"context"
	"fmt"

	"github.com/roach88/storefront/internal/domain"
)

const productColumns = `id, owner_id, title, description, price_cents, image_path, created_at, updated_at`

// CreateProduct inserts a product and returns it with its assigned ID.
func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO products (owner_id, title, description, price_cents, image_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.OwnerID,
		p.Title,
		p.Description,
		int64(p.Price),
		p.ImagePath,
		toMillis(p.CreatedAt),
		toMillis(p.UpdatedAt),
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt = fromMillis(toMillis(p.CreatedAt))
	p.UpdatedAt = fromMillis(toMillis(p.UpdatedAt))
	return p, nil
}

// UpdateProduct writes title, description, price, image and updated_at.
// The row is matched on both id and owner_id; a product owned by someone
// else is reported as NOT_FOUND.
func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET title = ?, description = ?, price_cents = ?, image_path = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`,
		p.Title,
		p.Description,
		int64(p.Price),
		p.ImagePath,
		toMillis(p.UpdatedAt),
		p.ID,
		p.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update product: %w", domain.NotFound("Product"))
	}
	return nil
}

// DeleteProduct removes a product owned by ownerID. Cart lines referencing it
// cascade away; order lines keep their snapshot with a NULL product_id.
func (s *Store) DeleteProduct(ctx context.Context, id, ownerID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM products WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("delete product: %w", domain.NotFound("Product"))
	}
	return nil
}

// ProductByID returns the product with the given ID.
func (s *Store) ProductByID(ctx context.Context, id int64) (domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product by id: %w", notFound(err, "Product"))
	}
	return p, nil
}

// ListProducts returns a page of the catalog, newest first.
func (s *Store) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+` FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
}

// CountProducts returns the catalog size.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// ListProductsByOwner returns a page of ownerID's products, newest first.
func (s *Store) ListProductsByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]domain.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, ownerID, limit, offset)
}

// CountProductsByOwner returns how many products ownerID has listed.
func (s *Store) CountProductsByOwner(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count products by owner: %w", err)
	}
	return n, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p                    domain.Product
		price                int64
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &price, &p.ImagePath, &createdAt, &updatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.Price = domain.Money(price)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}
