package shop

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/mail"
	"github.com/roach88/storefront/internal/payment"
	"github.com/roach88/storefront/internal/store"
	"github.com/roach88/storefront/internal/testutil"
	"github.com/roach88/storefront/internal/validate"
)

// fakeImages records saves and deletes without touching disk.
type fakeImages struct {
	mu      sync.Mutex
	n       int
	saved   []string
	deleted []string
	saveErr error
}

func (f *fakeImages) Save(*multipart.FileHeader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.n++
	p := fmt.Sprintf("/images/%d.png", f.n)
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakeImages) Delete(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, p)
	return nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (c *captureMailer) Send(_ context.Context, msg mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureMailer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type fixture struct {
	svc     *Service
	store   *store.Store
	images  *fakeImages
	mailer  *captureMailer
	gateway *payment.OfflineGateway
	clock   *testutil.FixedClock
	seq     int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		store:   st,
		images:  &fakeImages{},
		mailer:  &captureMailer{},
		gateway: payment.NewOfflineGateway(false),
		clock:   testutil.NewFixedClock(time.Time{}),
	}
	f.svc = New(Deps{
		Store:    st,
		Images:   f.images,
		Payments: f.gateway,
		Mailer:   f.mailer,
		Clock:    f.clock,
		Log:      zap.NewNop(),
	}, Config{
		NewNumber: func() string {
			f.seq++
			return fmt.Sprintf("ORD-%04d", f.seq)
		},
	})
	return f
}

func (f *fixture) user(t *testing.T, email string) domain.User {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), "Test User", email, "hash", f.clock.Now())
	require.NoError(t, err)
	return u
}

func (f *fixture) product(t *testing.T, owner domain.User, title, price string) domain.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), owner.ID, validate.ProductForm{
		Title: title, Price: price, Description: "Description for " + title,
	}, &multipart.FileHeader{Filename: "x.png"})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return p
}

var anImage = &multipart.FileHeader{Filename: "new.png"}

func TestProducts_Pagination(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	for _, title := range []string{"First", "Second", "Third"} {
		f.product(t, seller, title, "1.00")
	}
	ctx := context.Background()

	page1, p, err := f.svc.Products(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Page{Current: 1, PerPage: 2, Total: 3}, p)
	require.Len(t, page1, 2)
	assert.Equal(t, "Third", page1[0].Title)
	assert.True(t, p.HasNext())

	page2, p, err := f.svc.Products(ctx, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "First", page2[0].Title)
	assert.False(t, p.HasNext())
	assert.Equal(t, 2, p.Last())
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	ctx := context.Background()

	p := f.product(t, seller, "Blue Mug", "12.99")
	assert.Equal(t, seller.ID, p.OwnerID)
	assert.Equal(t, domain.Money(1299), p.Price)
	assert.Equal(t, "/images/1.png", p.ImagePath)

	_, err := f.svc.CreateProduct(ctx, seller.ID, validate.ProductForm{
		Title: "No Image", Price: "1", Description: "Missing its image file",
	}, nil)
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.CreateProduct(ctx, seller.ID, validate.ProductForm{
		Title: "x", Price: "1", Description: "Title is too short",
	}, anImage)
	assert.True(t, domain.IsValidation(err))
	assert.Len(t, f.images.saved, 1, "invalid form must not store an image")
}

func TestUpdateProduct_ReplacesImage(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	p := f.product(t, seller, "Blue Mug", "12.99")
	ctx := context.Background()

	updated, err := f.svc.UpdateProduct(ctx, seller.ID, p.ID, validate.ProductForm{
		Title: "Red Mug", Price: "10", Description: "Now in a warmer colour",
	}, anImage)
	require.NoError(t, err)
	assert.Equal(t, "Red Mug", updated.Title)
	assert.Equal(t, "/images/2.png", updated.ImagePath)
	assert.Equal(t, []string{"/images/1.png"}, f.images.deleted)

	got, err := f.svc.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(1000), got.Price)
	assert.Equal(t, "/images/2.png", got.ImagePath)
}

func TestUpdateProduct_KeepsImageWithoutUpload(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	p := f.product(t, seller, "Blue Mug", "12.99")

	updated, err := f.svc.UpdateProduct(context.Background(), seller.ID, p.ID, validate.ProductForm{
		Title: "Blue Mug", Price: "11", Description: "Same mug, lower price",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, p.ImagePath, updated.ImagePath)
	assert.Empty(t, f.images.deleted)
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	other := f.user(t, "other@example.com")
	p := f.product(t, seller, "Blue Mug", "12.99")
	ctx := context.Background()

	_, err := f.svc.OwnedProduct(ctx, other.ID, p.ID)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.UpdateProduct(ctx, other.ID, p.ID, validate.ProductForm{
		Title: "Stolen", Price: "1", Description: "Should never be saved",
	}, nil)
	assert.True(t, domain.IsForbidden(err))

	assert.True(t, domain.IsForbidden(f.svc.DeleteProduct(ctx, other.ID, p.ID)))

	_, err = f.svc.Product(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, f.images.deleted)

	assert.True(t, domain.IsNotFound(f.svc.DeleteProduct(ctx, seller.ID, 999)))
}

func TestOwnerProducts(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	f.product(t, a, "Alpha", "1")
	f.product(t, b, "Beta", "1")

	mine, p, err := f.svc.OwnerProducts(context.Background(), a.ID, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Alpha", mine[0].Title)
	assert.Equal(t, 1, p.Total)
}

func TestCart_MergeAndRemove(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	mug := f.product(t, seller, "Mug", "2.50")
	tea := f.product(t, seller, "Tea", "4.00")
	ctx := context.Background()

	for _, id := range []int64{mug.ID, tea.ID, mug.ID} {
		_, err := f.svc.AddToCart(ctx, buyer.ID, id)
		require.NoError(t, err)
	}

	cart, err := f.svc.Cart(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "Mug", cart.Lines[0].Product.Title)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	total, err := cart.Total()
	require.NoError(t, err)
	assert.Equal(t, domain.Money(900), total)
	assert.Equal(t, 3, cart.ItemCount())

	require.NoError(t, f.svc.RemoveFromCart(ctx, buyer.ID, mug.ID))
	require.NoError(t, f.svc.RemoveFromCart(ctx, buyer.ID, mug.ID))
	cart, err = f.svc.Cart(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "Tea", cart.Lines[0].Product.Title)

	_, err = f.svc.AddToCart(ctx, buyer.ID, 999)
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteProduct_RemovesFromCartsKeepsOrders(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	mug := f.product(t, seller, "Mug", "2.50")
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	require.NoError(t, err)
	order, err := f.svc.PlaceOrder(ctx, buyer)
	require.NoError(t, err)

	_, err = f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProduct(ctx, seller.ID, mug.ID))
	assert.Equal(t, []string{mug.ImagePath}, f.images.deleted)

	cart, err := f.svc.Cart(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, cart.Empty())

	got, err := f.svc.OrderForUser(ctx, buyer.ID, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Nil(t, got.Lines[0].ProductID)
	assert.Equal(t, "Mug", got.Lines[0].Title)
	assert.Equal(t, domain.Money(250), got.Lines[0].UnitPrice)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	mug := f.product(t, seller, "Mug", "2.50")
	tea := f.product(t, seller, "Tea", "4.00")
	ctx := context.Background()

	for _, id := range []int64{mug.ID, mug.ID, tea.ID} {
		_, err := f.svc.AddToCart(ctx, buyer.ID, id)
		require.NoError(t, err)
	}

	order, err := f.svc.PlaceOrder(ctx, buyer)
	require.NoError(t, err)

	want := domain.Order{
		ID:     order.ID,
		Number: "ORD-0001",
		UserID: buyer.ID,
		Email:  "buyer@example.com",
		Lines: []domain.OrderLine{
			{ProductID: &mug.ID, Title: "Mug", UnitPrice: 250, Quantity: 2},
			{ProductID: &tea.ID, Title: "Tea", UnitPrice: 400, Quantity: 1},
		},
		Total:     900,
		CreatedAt: f.clock.Now(),
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("PlaceOrder() mismatch (-want +got):\n%s", diff)
	}

	cart, err := f.svc.Cart(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, cart.Empty())

	// Price changes after the order do not touch it.
	_, err = f.svc.UpdateProduct(ctx, seller.ID, mug.ID, validate.ProductForm{
		Title: "Mug", Price: "99", Description: "Much more expensive now",
	}, nil)
	require.NoError(t, err)
	got, err := f.svc.OrderForUser(ctx, buyer.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(900), got.Total)

	require.Equal(t, 1, f.mailer.count())
	msg := f.mailer.sent[0]
	assert.Equal(t, "buyer@example.com", msg.To)
	assert.Contains(t, msg.Text, "INVOICE ORD-0001")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "invoice-ORD-0001.pdf", msg.Attachments[0].Name)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)
	buyer := f.user(t, "buyer@example.com")

	_, err := f.svc.PlaceOrder(context.Background(), buyer)
	assert.True(t, domain.IsEmptyCart(err))
	assert.Zero(t, f.mailer.count())

	orders, _, err := f.svc.Orders(context.Background(), buyer.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrders_ScopedToUser(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	mug := f.product(t, seller, "Mug", "2.50")
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, a.ID, mug.ID)
	require.NoError(t, err)
	order, err := f.svc.PlaceOrder(ctx, a)
	require.NoError(t, err)

	orders, p, err := f.svc.Orders(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, 1, p.Total)

	orders, _, err = f.svc.Orders(ctx, b.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = f.svc.OrderForUser(ctx, b.ID, order.ID)
	assert.True(t, domain.IsForbidden(err))

	var buf bytes.Buffer
	_, err = f.svc.WriteInvoice(ctx, b.ID, order.ID, &buf)
	assert.True(t, domain.IsForbidden(err))
	assert.Zero(t, buf.Len())

	name, err := f.svc.WriteInvoice(ctx, a.ID, order.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, "invoice-ORD-0001.pdf", name)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestCheckout_Flow(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	mug := f.product(t, seller, "Mug", "2.50")
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	require.NoError(t, err)

	sess, cart, err := f.svc.StartCheckout(ctx, buyer,
		"http://shop.test/checkout/success?session_id="+payment.SessionIDPlaceholder,
		"http://shop.test/checkout/cancel")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())
	assert.Equal(t, domain.Money(250), sess.Total)

	// Unpaid sessions do not produce orders.
	_, err = f.svc.CompleteCheckout(ctx, buyer, sess.ID)
	assert.True(t, domain.IsPaymentPending(err))

	require.NoError(t, f.gateway.MarkPaid(sess.ID))
	order, err := f.svc.CompleteCheckout(ctx, buyer, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, order.PaymentRef)
	assert.Equal(t, domain.Money(250), order.Total)

	// Second completion (e.g. a reloaded success page) is idempotent.
	_, err = f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	require.NoError(t, err)
	again, err := f.svc.CompleteCheckout(ctx, buyer, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)

	cart, err = f.svc.Cart(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount(), "repeat completion must not clear the new cart")
	assert.Equal(t, 1, f.mailer.count())
}

func TestCheckout_Rejections(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	thief := f.user(t, "thief@example.com")
	mug := f.product(t, seller, "Mug", "2.50")
	ctx := context.Background()

	_, _, err := f.svc.StartCheckout(ctx, buyer, "s", "c")
	assert.True(t, domain.IsEmptyCart(err))

	_, err = f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	require.NoError(t, err)
	sess, _, err := f.svc.StartCheckout(ctx, buyer, "s", "c")
	require.NoError(t, err)
	require.NoError(t, f.gateway.MarkPaid(sess.ID))

	_, err = f.svc.CompleteCheckout(ctx, thief, sess.ID)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.CompleteCheckout(ctx, buyer, "cs_unknown")
	assert.True(t, domain.IsNotFound(err))

	_, err = f.svc.CompleteCheckout(ctx, buyer, "")
	assert.True(t, domain.IsNotFound(err))
}

func TestCheckout_OrdersWhatWasPaidFor(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	mug := f.product(t, seller, "Mug", "1.00")
	sofa := f.product(t, seller, "Sofa", "999.00")
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	require.NoError(t, err)
	sess, _, err := f.svc.StartCheckout(ctx, buyer, "s", "c")
	require.NoError(t, err)
	require.NoError(t, f.gateway.MarkPaid(sess.ID))

	// Added after paying: must not ride along on the paid order.
	_, err = f.svc.AddToCart(ctx, buyer.ID, sofa.ID)
	require.NoError(t, err)

	order, err := f.svc.CompleteCheckout(ctx, buyer, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(100), order.Total)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "Mug", order.Lines[0].Title)

	cart, err := f.svc.Cart(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "Sofa", cart.Lines[0].Product.Title)
}

func TestCheckout_PaidWithEmptiedCart(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	mug := f.product(t, seller, "Mug", "2.50")
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	require.NoError(t, err)
	sess, _, err := f.svc.StartCheckout(ctx, buyer, "s", "c")
	require.NoError(t, err)
	require.NoError(t, f.gateway.MarkPaid(sess.ID))
	require.NoError(t, f.svc.RemoveFromCart(ctx, buyer.ID, mug.ID))

	order, err := f.svc.CompleteCheckout(ctx, buyer, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(250), order.Total)
	assert.Equal(t, 1, f.mailer.count())
}

// shortGateway reports every session as paid for one cent less.
type shortGateway struct{ *payment.OfflineGateway }

func (g shortGateway) Session(ctx context.Context, id string) (*payment.Session, error) {
	s, err := g.OfflineGateway.Session(ctx, id)
	if err == nil {
		s.Total--
	}
	return s, err
}

func TestCheckout_PaidAmountMismatch(t *testing.T) {
	f := newFixture(t)
	f.svc = New(Deps{
		Store:    f.store,
		Images:   f.images,
		Payments: shortGateway{f.gateway},
		Mailer:   f.mailer,
		Clock:    f.clock,
		Log:      zap.NewNop(),
	}, Config{})
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	mug := f.product(t, seller, "Mug", "2.50")
	ctx := context.Background()

	_, err := f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	require.NoError(t, err)
	sess, _, err := f.svc.StartCheckout(ctx, buyer, "s", "c")
	require.NoError(t, err)
	require.NoError(t, f.gateway.MarkPaid(sess.ID))

	_, err = f.svc.CompleteCheckout(ctx, buyer, sess.ID)
	assert.True(t, domain.IsConflict(err), "got %v", err)
	assert.Zero(t, f.mailer.count())

	cart, err := f.svc.Cart(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())
}

func TestCart_QuantityBound(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	buyer := f.user(t, "buyer@example.com")
	mug := f.product(t, seller, "Mug", "999999.99")
	ctx := context.Background()

	for i := 0; i < domain.MaxLineQuantity; i++ {
		_, err := f.svc.AddToCart(ctx, buyer.ID, mug.ID)
		require.NoError(t, err)
	}
	_, err := f.svc.AddToCart(ctx, buyer.ID, mug.ID)
	assert.True(t, domain.IsValidation(err), "got %v", err)

	order, err := f.svc.PlaceOrder(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxPrice*domain.MaxLineQuantity, order.Total)
	assert.Positive(t, int64(order.Total))
}

func TestCreateProduct_PriceBounds(t *testing.T) {
	f := newFixture(t)
	seller := f.user(t, "seller@example.com")
	for _, price := range []string{"90000000000000000", "1000000", "1e2", "0x1p4", "0.005"} {
		_, err := f.svc.CreateProduct(context.Background(), seller.ID, validate.ProductForm{
			Title: "Gold Bar", Price: price, Description: "Heavy and shiny",
		}, anImage)
		assert.True(t, domain.IsValidation(err), "price %q: got %v", price, err)
	}
	assert.Empty(t, f.images.saved)
}

func TestNew_Defaults(t *testing.T) {
	svc := New(Deps{}, Config{})
	assert.Equal(t, DefaultPerPage, svc.PerPage())
	n := svc.cfg.NewNumber()
	assert.Len(t, n, 36)
	assert.Equal(t, byte('7'), n[14], "UUIDv7 version nibble")
}
