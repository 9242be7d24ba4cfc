package shop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/payment"
)

// StartCheckout opens a payment session for user's current cart and records
// the cart as the checkout snapshot; completing the payment orders exactly
// those lines. successURL may contain payment.SessionIDPlaceholder.
func (s *Service) StartCheckout(ctx context.Context, user domain.User, successURL, cancelURL string) (*payment.Session, domain.Cart, error) {
	cart, err := s.store.Cart(ctx, user.ID)
	if err != nil {
		return nil, domain.Cart{}, err
	}
	if cart.Empty() {
		return nil, cart, domain.EmptyCart()
	}

	req := payment.CheckoutRequest{
		UserID:     user.ID,
		Email:      user.Email,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Items:      make([]payment.LineItem, 0, len(cart.Lines)),
	}
	snapshot := domain.Checkout{
		UserID:    user.ID,
		Lines:     make([]domain.OrderLine, 0, len(cart.Lines)),
		CreatedAt: s.clock.Now(),
	}
	for _, l := range cart.Lines {
		req.Items = append(req.Items, payment.LineItem{
			Name:        l.Product.Title,
			Description: l.Product.Description,
			UnitAmount:  l.Product.Price,
			Quantity:    l.Quantity,
		})
		productID := l.Product.ID
		snapshot.Lines = append(snapshot.Lines, domain.OrderLine{
			ProductID: &productID,
			Title:     l.Product.Title,
			UnitPrice: l.Product.Price,
			Quantity:  l.Quantity,
		})
	}

	sess, err := s.payments.CreateSession(ctx, req)
	if err != nil {
		return nil, cart, fmt.Errorf("start checkout: %w", err)
	}
	snapshot.ID = sess.ID
	if snapshot, err = s.store.SaveCheckout(ctx, snapshot); err != nil {
		return nil, cart, fmt.Errorf("start checkout: %w", err)
	}
	s.metrics.CheckoutStarted()
	s.log.Info("checkout started",
		zap.Int64("user_id", user.ID), zap.String("session", sess.ID), zap.String("total", snapshot.Total.String()))
	return sess, cart, nil
}

// CompleteCheckout turns a paid session into an order for the lines that
// were paid for. The session must belong to user (FORBIDDEN) and be paid
// (PAYMENT_PENDING), and the amount paid must match the snapshot
// (CONFLICT). Repeating the call for the same session returns the same
// order.
func (s *Service) CompleteCheckout(ctx context.Context, user domain.User, sessionID string) (domain.Order, error) {
	if sessionID == "" {
		return domain.Order{}, domain.NotFound("Checkout session")
	}
	sess, err := s.payments.Session(ctx, sessionID)
	if err != nil {
		return domain.Order{}, err
	}
	if sess.UserID != user.ID {
		return domain.Order{}, domain.Forbidden("This checkout belongs to another account.")
	}
	if !sess.Paid {
		return domain.Order{}, domain.PaymentPending("Payment has not been completed.")
	}

	order, _, err := s.placeOrder(ctx, user, sess.ID, sess.Total, metrics.SourceCheckout)
	return order, err
}
