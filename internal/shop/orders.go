package shop

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/invoice"
	"github.com/roach88/storefront/internal/mail"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/store"
)

// PlaceOrder converts user's cart into an order directly, without payment.
// An empty cart is EMPTY_CART and leaves nothing behind.
func (s *Service) PlaceOrder(ctx context.Context, user domain.User) (domain.Order, error) {
	order, _, err := s.placeOrder(ctx, user, "", 0, metrics.SourceDirect)
	return order, err
}

func (s *Service) placeOrder(ctx context.Context, user domain.User, paymentRef string, paid domain.Money, source string) (domain.Order, bool, error) {
	order, created, err := s.store.PlaceOrder(ctx, store.PlaceOrderParams{
		UserID:     user.ID,
		Email:      user.Email,
		Number:     s.cfg.NewNumber(),
		PaymentRef: paymentRef,
		PaidTotal:  paid,
		Now:        s.clock.Now(),
	})
	if err != nil {
		return domain.Order{}, false, err
	}
	if !created {
		s.log.Info("order already placed for payment",
			zap.String("payment_ref", paymentRef), zap.String("order", order.Number))
		return order, false, nil
	}

	s.metrics.OrderPlaced(source, order.Total)
	s.log.Info("order placed",
		zap.String("order", order.Number),
		zap.Int64("user_id", user.ID),
		zap.Int("lines", len(order.Lines)),
		zap.String("total", order.Total.String()),
		zap.String("source", source),
	)
	s.sendConfirmation(ctx, order)
	return order, true, nil
}

func (s *Service) sendConfirmation(ctx context.Context, order domain.Order) {
	inv := invoice.Build(order, s.cfg.Seller)
	var pdf bytes.Buffer
	if err := invoice.WritePDF(&pdf, inv); err != nil {
		s.log.Warn("invoice attachment failed", zap.String("order", order.Number), zap.Error(err))
		pdf.Reset()
	}
	s.send(ctx, mail.OrderConfirmation(order, invoice.Text(inv), invoice.Filename(order.Number), pdf.Bytes()))
}

// Orders returns one page of userID's orders, newest first.
func (s *Service) Orders(ctx context.Context, userID int64, page int) ([]domain.Order, domain.Page, error) {
	total, err := s.store.CountOrders(ctx, userID)
	if err != nil {
		return nil, domain.Page{}, err
	}
	p := domain.NewPage(page, s.cfg.PerPage, total)
	orders, err := s.store.ListOrders(ctx, userID, p.Offset(), p.Limit())
	if err != nil {
		return nil, domain.Page{}, err
	}
	return orders, p, nil
}

// OrderForUser returns order id when it belongs to userID.
// Another user's order is FORBIDDEN.
func (s *Service) OrderForUser(ctx context.Context, userID, id int64) (domain.Order, error) {
	o, err := s.store.OrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.UserID != userID {
		return domain.Order{}, domain.Forbidden("Unauthorized")
	}
	return o, nil
}

// WriteInvoice renders the PDF invoice for one of userID's orders to w and
// returns its download filename.
func (s *Service) WriteInvoice(ctx context.Context, userID, orderID int64, w io.Writer) (string, error) {
	o, err := s.OrderForUser(ctx, userID, orderID)
	if err != nil {
		return "", err
	}
	if err := invoice.WritePDF(w, invoice.Build(o, s.cfg.Seller)); err != nil {
		return "", fmt.Errorf("invoice for order %d: %w", orderID, err)
	}
	return invoice.Filename(o.Number), nil
}
