package web

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/payment"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/validate"
)

func (s *Server) handleIndex(c *gin.Context) {
	s.productList(c, "shop/index", "Shop")
}

func (s *Server) handleProducts(c *gin.Context) {
	s.productList(c, "shop/product-list", "All Products")
}

func (s *Server) productList(c *gin.Context, name, title string) {
	products, page, err := s.shop.Products(c.Request.Context(), validate.PageNumber(c.Query("page")))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, name, gin.H{
		"pageTitle": title,
		"products":  products,
		"page":      page,
	})
}

func (s *Server) handleProduct(c *gin.Context) {
	id, err := validate.ID(c.Param("productId"))
	if err != nil {
		s.redirect(c, "/products")
		return
	}
	product, err := s.shop.Product(c.Request.Context(), id)
	if domain.IsNotFound(err) {
		s.flash(c, session.FlashError, "Product not found")
		s.redirect(c, "/products")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "shop/product-detail", gin.H{
		"pageTitle": product.Title,
		"path":      "/products",
		"product":   product,
	})
}

func (s *Server) handleCart(c *gin.Context) {
	user, _ := userOf(c)
	cart, err := s.shop.Cart(c.Request.Context(), user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "shop/cart", gin.H{
		"pageTitle": "Your Cart",
		"cart":      cart,
	})
}

func (s *Server) handleAddToCart(c *gin.Context) {
	user, _ := userOf(c)
	id, err := validate.ID(c.PostForm("productId"))
	if err == nil {
		_, err = s.shop.AddToCart(c.Request.Context(), user.ID, id)
	}
	switch {
	case err == nil:
	case domain.IsNotFound(err), domain.IsValidation(err):
		s.flash(c, session.FlashError, "Product not found")
	default:
		s.fail(c, err)
		return
	}
	s.redirect(c, "/cart")
}

func (s *Server) handleRemoveFromCart(c *gin.Context) {
	user, _ := userOf(c)
	id, err := validate.ID(c.PostForm("productId"))
	if err != nil {
		s.flash(c, session.FlashError, "Product not found")
		s.redirect(c, "/cart")
		return
	}
	if err := s.shop.RemoveFromCart(c.Request.Context(), user.ID, id); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, "/cart")
}

func (s *Server) handleOrders(c *gin.Context) {
	user, _ := userOf(c)
	orders, page, err := s.shop.Orders(c.Request.Context(), user.ID, validate.PageNumber(c.Query("page")))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "shop/orders", gin.H{
		"pageTitle": "Your Orders",
		"orders":    orders,
		"page":      page,
	})
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	user, _ := userOf(c)
	_, err := s.shop.PlaceOrder(c.Request.Context(), user)
	if domain.IsEmptyCart(err) {
		s.flash(c, session.FlashError, domain.MessageOf(err, "Your cart is empty"))
		s.redirect(c, "/cart")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.flash(c, session.FlashSuccess, "Order placed successfully")
	s.redirect(c, "/orders")
}

// handleInvoice streams the order's PDF invoice inline.
func (s *Server) handleInvoice(c *gin.Context) {
	user, _ := userOf(c)
	id, err := validate.ID(c.Param("orderId"))
	if err != nil {
		s.flash(c, session.FlashError, "Order not found")
		s.redirect(c, "/orders")
		return
	}

	var buf bytes.Buffer
	name, err := s.shop.WriteInvoice(c.Request.Context(), user.ID, id, &buf)
	switch {
	case err == nil:
	case domain.IsNotFound(err):
		s.flash(c, session.FlashError, "Order not found")
		s.redirect(c, "/orders")
		return
	case domain.IsForbidden(err):
		s.flash(c, session.FlashError, "Unauthorized access")
		s.redirect(c, "/orders")
		return
	default:
		s.fail(c, err)
		return
	}

	s.saveSession(c)
	c.Header("Content-Disposition", "inline; filename="+name)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// handleCheckout opens a payment session for the cart and shows the
// summary page with the payment link.
func (s *Server) handleCheckout(c *gin.Context) {
	user, _ := userOf(c)
	successURL := s.cfg.BaseURL + "/checkout/success?session_id=" + payment.SessionIDPlaceholder
	cancelURL := s.cfg.BaseURL + "/checkout/cancel"

	ps, cart, err := s.shop.StartCheckout(c.Request.Context(), user, successURL, cancelURL)
	if domain.IsEmptyCart(err) {
		s.flash(c, session.FlashError, domain.MessageOf(err, "Your cart is empty"))
		s.redirect(c, "/cart")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	sessionOf(c).SetPendingCheckout(ps.ID)
	s.render(c, http.StatusOK, "shop/checkout", gin.H{
		"pageTitle":   "Checkout",
		"cart":        cart,
		"checkoutURL": ps.URL,
	})
}

// handleCheckoutSuccess turns the paid session into an order. Reloading
// the page does not create a second order.
func (s *Server) handleCheckoutSuccess(c *gin.Context) {
	user, _ := userOf(c)
	sess := sessionOf(c)
	id := c.Query("session_id")
	if id == "" {
		id = sess.PendingCheckout()
	}

	_, err := s.shop.CompleteCheckout(c.Request.Context(), user, id)
	switch {
	case err == nil:
	case domain.IsPaymentPending(err):
		s.flash(c, session.FlashError, domain.MessageOf(err, "Payment has not been completed."))
		s.redirect(c, "/checkout")
		return
	case domain.IsForbidden(err):
		s.flash(c, session.FlashError, "Unauthorized access")
		s.redirect(c, "/orders")
		return
	case domain.IsNotFound(err), domain.IsEmptyCart(err):
		s.flash(c, session.FlashError, domain.MessageOf(err, "Checkout session not found"))
		s.redirect(c, "/cart")
		return
	default:
		s.fail(c, err)
		return
	}

	if sess.PendingCheckout() == id {
		sess.SetPendingCheckout("")
	}
	s.flash(c, session.FlashSuccess, "Order placed successfully")
	s.redirect(c, "/orders")
}

func (s *Server) handleCheckoutCancel(c *gin.Context) {
	sessionOf(c).SetPendingCheckout("")
	s.flash(c, session.FlashError, "Checkout was cancelled.")
	s.redirect(c, "/cart")
}
