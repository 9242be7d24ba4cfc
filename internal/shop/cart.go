package shop

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
)

// Cart returns userID's cart with current product data.
func (s *Service) Cart(ctx context.Context, userID int64) (domain.Cart, error) {
	return s.store.Cart(ctx, userID)
}

// AddToCart adds one unit of productID, merging with an existing line.
// Returns the new line quantity. Unknown products are NOT_FOUND.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64) (int, error) {
	qty, err := s.store.AddToCart(ctx, userID, productID, 1, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.log.Debug("cart add", zap.Int64("user_id", userID), zap.Int64("product_id", productID), zap.Int("quantity", qty))
	return qty, nil
}

// RemoveFromCart drops the whole line for productID. Removing a product
// that is not in the cart is not an error.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	return s.store.RemoveFromCart(ctx, userID, productID)
}
