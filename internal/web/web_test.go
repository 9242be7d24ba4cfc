package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/storefront/internal/auth"
	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/mail"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/payment"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/shop"
	"github.com/roach88/storefront/internal/store"
	"github.com/roach88/storefront/internal/testutil"
	"github.com/roach88/storefront/internal/uploads"
	"github.com/roach88/storefront/internal/validate"
)

const testPassword = "secret123"

var (
	csrfMeta   = regexp.MustCompile(`name="csrf-token" content="([^"]+)"`)
	sessionRef = regexp.MustCompile(`session_id=(cs_offline_[0-9a-f]+)`)
	resetLink  = regexp.MustCompile(`/reset-password/([0-9a-f]{64})`)
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
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

func (c *captureMailer) last() (mail.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return mail.Message{}, false
	}
	return c.sent[len(c.sent)-1], true
}

type fixture struct {
	srv     *httptest.Server
	store   *store.Store
	auth    *auth.Service
	gateway *payment.OfflineGateway
	mailer  *captureMailer
	metrics *metrics.Metrics
	images  *uploads.Storage
	clock   *testutil.FixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clk := testutil.NewFixedClock(time.Time{})
	images, err := uploads.New(t.TempDir(), "/images", clk)
	require.NoError(t, err)

	f := &fixture{
		store:   st,
		gateway: payment.NewOfflineGateway(false),
		mailer:  &captureMailer{},
		metrics: metrics.New(),
		images:  images,
		clock:   clk,
	}
	log := zap.NewNop()
	f.auth = auth.New(st, f.mailer, f.clock, log, f.metrics, auth.Config{
		Cost:    bcrypt.MinCost,
		BaseURL: "http://shop.test",
	})
	svc := shop.New(shop.Deps{
		Store:    st,
		Images:   images,
		Payments: f.gateway,
		Mailer:   f.mailer,
		Clock:    f.clock,
		Log:      log,
		Metrics:  f.metrics,
	}, shop.Config{})

	server, err := NewServer(Deps{
		Auth:     f.auth,
		Shop:     svc,
		Sessions: session.NewManager(st, f.clock, log, session.Options{}),
		Images:   images,
		Metrics:  f.metrics,
		Log:      log,
	}, Config{BaseURL: "http://shop.test/"})
	require.NoError(t, err)

	f.srv = httptest.NewServer(server.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) signup(t *testing.T, name, email string) domain.User {
	t.Helper()
	u, err := f.auth.Signup(context.Background(), validate.SignupForm{
		Name: name, Email: email, Password: testPassword, ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) product(t *testing.T, owner domain.User, title string, price domain.Money) domain.Product {
	t.Helper()
	p, err := f.store.CreateProduct(context.Background(), domain.Product{
		OwnerID:     owner.ID,
		Title:       title,
		Description: "A fine " + title,
		Price:       price,
		ImagePath:   "/images/" + strings.ToLower(title) + ".png",
		CreatedAt:   f.clock.Now(),
		UpdatedAt:   f.clock.Now(),
	})
	require.NoError(t, err)
	return p
}

// client is a browser stand-in: it keeps cookies, remembers the last CSRF
// token it saw and does not follow redirects.
type client struct {
	t    *testing.T
	base string
	http *http.Client
	csrf string
}

func (f *fixture) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: f.srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status int
	header http.Header
	body   string
}

func (r response) location() string { return r.header.Get("Location") }

func (c *client) do(req *http.Request) response {
	c.t.Helper()
	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(c.t, err)
	if m := csrfMeta.FindSubmatch(body); m != nil {
		c.csrf = html.UnescapeString(string(m[1]))
	}
	return response{status: res.StatusCode, header: res.Header, body: string(body)}
}

func (c *client) get(path string) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

// post submits a form, adding the current CSRF token.
func (c *client) post(path string, values url.Values) response {
	c.t.Helper()
	if values == nil {
		values = url.Values{}
	}
	if values.Get("_csrf") == "" && c.csrf != "" {
		values.Set("_csrf", c.csrf)
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(values.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) upload(path string, values url.Values, filename string, data []byte) response {
	c.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(c.t, w.WriteField(k, v))
		}
	}
	require.NoError(c.t, w.WriteField("_csrf", c.csrf))
	if filename != "" {
		fw, err := w.CreateFormFile("image", filename)
		require.NoError(c.t, err)
		_, err = fw.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *client) delete(path string) response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodDelete, c.base+path, nil)
	require.NoError(c.t, err)
	req.Header.Set("csrf-token", c.csrf)
	return c.do(req)
}

func (c *client) login(email, password string) response {
	c.t.Helper()
	c.get("/login")
	return c.post("/login", url.Values{"email": {email}, "password": {password}})
}

func jsonMessage(t *testing.T, body string) string {
	t.Helper()
	var v struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v.Message
}

func TestShopPagesArePublic(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	p := f.product(t, owner, "Mug", 1299)

	c := f.client(t)
	res := c.get("/")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Mug")
	assert.Contains(t, res.body, "$12.99")
	assert.NotContains(t, res.body, "Add to Cart")

	res = c.get(fmt.Sprintf("/products/%d", p.ID))
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "A fine Mug")

	res = c.get("/products/999")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/products", res.location())
	assert.Contains(t, c.get("/products").body, "Product not found")

	res = c.get("/products/abc")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/products", res.location())
}

func TestPagination(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	for _, title := range []string{"Alpha", "Bravo", "Charlie"} {
		f.product(t, owner, title, 500)
	}

	c := f.client(t)
	page1 := c.get("/products").body
	page2 := c.get("/products?page=2").body
	assert.Contains(t, page2, `href="?page=1"`)
	assert.Contains(t, page1, `href="?page=2"`)

	count := func(body string) int {
		n := 0
		for _, title := range []string{"Alpha", "Bravo", "Charlie"} {
			if strings.Contains(body, title) {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 2, count(page1))
	assert.Equal(t, 1, count(page2))
}

func TestRequireAuthRedirectsToLogin(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)

	for _, path := range []string{"/cart", "/orders", "/checkout", "/admin/products", "/admin/add-product"} {
		res := c.get(path)
		assert.Equal(t, http.StatusFound, res.status, path)
		assert.Equal(t, "/login", res.location(), path)
	}
	assert.Contains(t, c.get("/login").body, "Please log in to access this page.")
}

func TestCSRFTokenRequired(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ada", "ada@example.com")
	c := f.client(t)
	c.get("/login")

	res := c.post("/login", url.Values{
		"email": {"ada@example.com"}, "password": {testPassword}, "_csrf": {"forged"},
	})
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Contains(t, res.body, "Invalid or missing CSRF token.")

	res = c.post("/login", url.Values{"email": {"ada@example.com"}, "password": {testPassword}})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/", res.location())
}

func TestCSRFTokenBoundToBrowser(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ada", "ada@example.com")
	victim := f.client(t)
	victim.get("/login")

	// A token lifted from another browser does not match this one's cookie.
	attacker := f.client(t)
	attacker.get("/login")
	res := attacker.post("/login", url.Values{
		"email": {"ada@example.com"}, "password": {testPassword}, "_csrf": {victim.csrf},
	})
	assert.Equal(t, http.StatusForbidden, res.status)

	// The header form is accepted in place of the field.
	req, err := http.NewRequest(http.MethodPost, victim.base+"/login",
		strings.NewReader(url.Values{"email": {"ada@example.com"}, "password": {testPassword}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", victim.csrf)
	res = victim.do(req)
	assert.Equal(t, http.StatusFound, res.status)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ada", "ada@example.com")
	c := f.client(t)

	res := c.login("ada@example.com", "wrongpass1")
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, "Invalid email or password.")
	assert.Contains(t, res.body, `value="ada@example.com"`)

	res = c.login("not-an-email", testPassword)
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Please enter a valid email address")
}

func TestLoginRenewsSessionAndLogout(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ada", "ada@example.com")
	c := f.client(t)

	c.get("/login")
	before := c.csrf
	require.Equal(t, http.StatusFound, c.post("/login", url.Values{
		"email": {"ada@example.com"}, "password": {testPassword},
	}).status)

	res := c.get("/")
	assert.Contains(t, res.body, "Logout")
	assert.NotEqual(t, before, c.csrf, "tokens are masked afresh for every page")

	res = c.post("/logout", nil)
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/", res.location())
	assert.Equal(t, "/login", c.get("/cart").location())
}

func TestSignup(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	c.get("/signup")

	res := c.post("/signup", url.Values{
		"name": {"Grace"}, "email": {"grace@example.com"},
		"password": {testPassword}, "confirmPassword": {"different1"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Passwords do not match")
	assert.Contains(t, res.body, `value="Grace"`)

	res = c.post("/signup", url.Values{
		"name": {"Grace"}, "email": {"grace@example.com"},
		"password": {testPassword}, "confirmPassword": {testPassword},
	})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location())
	assert.Contains(t, c.get("/login").body, "Signup succeeded! Please log in.")

	msg, ok := f.mailer.last()
	require.True(t, ok)
	assert.Equal(t, "grace@example.com", msg.To)

	res = c.post("/signup", url.Values{
		"name": {"Grace"}, "email": {"grace@example.com"},
		"password": {testPassword}, "confirmPassword": {testPassword},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
}

func TestCartAndDirectOrder(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	mug := f.product(t, owner, "Mug", 1299)
	pen := f.product(t, owner, "Pen", 250)
	f.signup(t, "Ada", "ada@example.com")

	c := f.client(t)
	c.login("ada@example.com", testPassword)
	c.get("/")

	for _, id := range []int64{mug.ID, mug.ID, pen.ID} {
		res := c.post("/cart", url.Values{"productId": {fmt.Sprint(id)}})
		require.Equal(t, http.StatusFound, res.status)
		require.Equal(t, "/cart", res.location())
	}

	res := c.get("/cart")
	assert.Contains(t, res.body, "Quantity: 2")
	assert.Contains(t, res.body, "Total: $28.48")

	res = c.post("/cart-delete-item", url.Values{"productId": {fmt.Sprint(pen.ID)}})
	assert.Equal(t, "/cart", res.location())
	assert.Contains(t, c.get("/cart").body, "Total: $25.98")

	res = c.post("/cart", url.Values{"productId": {"999"}})
	assert.Equal(t, "/cart", res.location())
	assert.Contains(t, c.get("/cart").body, "Product not found")

	res = c.post("/create-order", nil)
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/orders", res.location())

	res = c.get("/orders")
	assert.Contains(t, res.body, "Order placed successfully")
	assert.Contains(t, res.body, "Mug (2)")
	assert.Contains(t, c.get("/cart").body, "No Products in Cart!")

	res = c.post("/create-order", nil)
	assert.Equal(t, "/cart", res.location())
	assert.Contains(t, c.get("/cart").body, "Your cart is empty")
}

func TestInvoiceDownload(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	mug := f.product(t, owner, "Mug", 1299)
	f.signup(t, "Ada", "ada@example.com")
	f.signup(t, "Eve", "eve@example.com")

	ada := f.client(t)
	ada.login("ada@example.com", testPassword)
	ada.get("/")
	ada.post("/cart", url.Values{"productId": {fmt.Sprint(mug.ID)}})
	ada.post("/create-order", nil)

	orders, err := f.store.ListOrders(context.Background(), 2, 0, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	path := fmt.Sprintf("/orders/%d", orders[0].ID)

	res := ada.get(path)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "application/pdf", res.header.Get("Content-Type"))
	assert.Equal(t, "inline; filename=invoice-"+orders[0].Number+".pdf", res.header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(res.body, "%PDF-"))

	eve := f.client(t)
	eve.login("eve@example.com", testPassword)
	res = eve.get(path)
	assert.Equal(t, "/orders", res.location())
	assert.Contains(t, eve.get("/orders").body, "Unauthorized access")

	res = eve.get("/orders/999")
	assert.Equal(t, "/orders", res.location())
	assert.Contains(t, eve.get("/orders").body, "Order not found")
}

func TestCheckoutFlow(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	mug := f.product(t, owner, "Mug", 1299)
	ada := f.signup(t, "Ada", "ada@example.com")

	c := f.client(t)
	c.login("ada@example.com", testPassword)

	res := c.get("/checkout")
	assert.Equal(t, "/cart", res.location(), "empty cart cannot check out")

	c.get("/")
	c.post("/cart", url.Values{"productId": {fmt.Sprint(mug.ID)}})

	res = c.get("/checkout")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Total: $12.99")
	m := sessionRef.FindStringSubmatch(res.body)
	require.NotNil(t, m, "checkout page links to the payment session")
	id := m[1]

	res = c.get("/checkout/success?session_id=" + id)
	assert.Equal(t, "/checkout", res.location())
	assert.Contains(t, c.get("/orders").body, "Nothing there!")

	require.NoError(t, f.gateway.MarkPaid(id))

	// The pending session id in the cookie session is used when the
	// query parameter is missing.
	res = c.get("/checkout/success")
	assert.Equal(t, "/orders", res.location())
	res = c.get("/checkout/success?session_id=" + id)
	assert.Equal(t, "/orders", res.location())

	n, err := f.store.CountOrders(context.Background(), ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "completing twice places one order")

	cart, err := f.store.Cart(context.Background(), ada.ID)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestCheckoutBelongsToBuyer(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	mug := f.product(t, owner, "Mug", 1299)
	f.signup(t, "Ada", "ada@example.com")
	f.signup(t, "Eve", "eve@example.com")

	ada := f.client(t)
	ada.login("ada@example.com", testPassword)
	ada.get("/")
	ada.post("/cart", url.Values{"productId": {fmt.Sprint(mug.ID)}})
	id := sessionRef.FindStringSubmatch(ada.get("/checkout").body)[1]
	require.NoError(t, f.gateway.MarkPaid(id))

	eve := f.client(t)
	eve.login("eve@example.com", testPassword)
	res := eve.get("/checkout/success?session_id=" + id)
	assert.Equal(t, "/orders", res.location())
	assert.Contains(t, eve.get("/orders").body, "Unauthorized access")

	res = ada.get("/checkout/cancel")
	assert.Equal(t, "/cart", res.location())
}

func TestAddProductUpload(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Owner", "owner@example.com")
	c := f.client(t)
	c.login("owner@example.com", testPassword)
	c.get("/admin/add-product")

	form := url.Values{"title": {"Desk Lamp"}, "price": {"24.50"}, "description": {"A lamp for late nights."}}

	res := c.upload("/admin/add-product", form, "notes.txt", []byte("plain text, not an image"))
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Attached file is not an image.")
	assert.Contains(t, res.body, `value="Desk Lamp"`)

	res = c.upload("/admin/add-product", url.Values{"title": {"x"}, "price": {"1"}, "description": {"short"}}, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Title must be between 3 and 100 characters")

	res = c.upload("/admin/add-product", form, "lamp.png", pngHeader)
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/admin/products", res.location())

	res = c.get("/admin/products")
	assert.Contains(t, res.body, "Desk Lamp")
	assert.Contains(t, res.body, "$24.50")

	entries, err := os.ReadDir(f.images.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".png", filepath.Ext(entries[0].Name()))

	img := c.get("/images/" + entries[0].Name())
	assert.Equal(t, http.StatusOK, img.status)
}

func TestEditProduct(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	other := f.signup(t, "Other", "other@example.com")
	mine := f.product(t, owner, "Mug", 1299)
	theirs := f.product(t, other, "Pen", 250)

	c := f.client(t)
	c.login("owner@example.com", testPassword)

	res := c.get(fmt.Sprintf("/admin/edit-product/%d", mine.ID))
	assert.Equal(t, "/", res.location(), "edit mode flag is required")

	res = c.get(fmt.Sprintf("/admin/edit-product/%d?edit=true", mine.ID))
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `value="12.99"`)
	assert.Contains(t, res.body, "Update Product")

	res = c.get(fmt.Sprintf("/admin/edit-product/%d?edit=true", theirs.ID))
	assert.Equal(t, "/admin/products", res.location())

	edit := url.Values{
		"productId": {fmt.Sprint(mine.ID)}, "title": {"Big Mug"},
		"price": {"15"}, "description": {"An even bigger mug."},
	}
	res = c.upload("/admin/edit-product", edit, "", nil)
	assert.Equal(t, "/admin/products", res.location())

	updated, err := f.store.ProductByID(context.Background(), mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", updated.Title)
	assert.Equal(t, domain.Money(1500), updated.Price)
	assert.Equal(t, mine.ImagePath, updated.ImagePath)

	edit.Set("productId", fmt.Sprint(theirs.ID))
	res = c.upload("/admin/edit-product", edit, "", nil)
	assert.Equal(t, "/admin/products", res.location())
	assert.Contains(t, c.get("/admin/products").body, "Unauthorized access")

	edit.Set("productId", fmt.Sprint(mine.ID))
	edit.Set("price", "-3")
	res = c.upload("/admin/edit-product", edit, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body, "Price must be a positive number")
}

func TestDeleteProductJSON(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	other := f.signup(t, "Other", "other@example.com")
	mine := f.product(t, owner, "Mug", 1299)
	theirs := f.product(t, other, "Pen", 250)

	c := f.client(t)
	c.login("owner@example.com", testPassword)
	c.get("/admin/products")

	res := c.delete(fmt.Sprintf("/admin/product/%d", theirs.ID))
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Unauthorized access", jsonMessage(t, res.body))

	res = c.delete(fmt.Sprintf("/admin/product/%d", mine.ID))
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Product deleted successfully", jsonMessage(t, res.body))

	res = c.delete(fmt.Sprintf("/admin/product/%d", mine.ID))
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "Product not found", jsonMessage(t, res.body))

	res = c.delete("/admin/product/abc")
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Equal(t, "Validation failed", jsonMessage(t, res.body))

	c.csrf = "forged"
	res = c.delete(fmt.Sprintf("/admin/product/%d", theirs.ID))
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Invalid CSRF token", jsonMessage(t, res.body))
}

func TestDeleteProductForm(t *testing.T) {
	f := newFixture(t)
	owner := f.signup(t, "Owner", "owner@example.com")
	mine := f.product(t, owner, "Mug", 1299)

	c := f.client(t)
	c.login("owner@example.com", testPassword)
	c.get("/admin/products")

	res := c.post("/admin/delete-product", url.Values{"productId": {fmt.Sprint(mine.ID)}})
	assert.Equal(t, "/admin/products", res.location())
	body := c.get("/admin/products").body
	assert.Contains(t, body, "Product deleted successfully")
	assert.Contains(t, body, "No Products Found!")
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ada", "ada@example.com")
	c := f.client(t)
	c.get("/reset-password")

	const generic = "If an account with that email exists, a reset link has been sent."

	res := c.post("/reset-password", url.Values{"email": {"nobody@example.com"}})
	assert.Equal(t, "/reset-password", res.location())
	assert.Contains(t, c.get("/reset-password").body, generic)

	res = c.post("/reset-password", url.Values{"email": {"ada@example.com"}})
	assert.Equal(t, "/reset-password", res.location())
	assert.Contains(t, c.get("/reset-password").body, generic)

	msg, ok := f.mailer.last()
	require.True(t, ok)
	require.Equal(t, "Password reset", msg.Subject)
	m := resetLink.FindStringSubmatch(msg.Text)
	require.NotNil(t, m)
	token := m[1]

	res = c.get("/reset-password/" + token)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, token)

	res = c.post("/new-password", url.Values{
		"userId": {"2"}, "passwordToken": {token}, "password": {"newpass99"}, "confirmPassword": {"newpass99"},
	})
	assert.Equal(t, "/reset-password", res.location(), "token belongs to another user id")

	res = c.post("/new-password", url.Values{
		"userId": {"1"}, "passwordToken": {token}, "password": {"newpass99"}, "confirmPassword": {"mismatch1"},
	})
	assert.Equal(t, "/reset-password/"+token, res.location())

	res = c.post("/new-password", url.Values{
		"userId": {"1"}, "passwordToken": {token}, "password": {"newpass99"}, "confirmPassword": {"newpass99"},
	})
	assert.Equal(t, "/login", res.location())
	assert.Contains(t, c.get("/login").body, "Password updated successfully. Please log in.")

	assert.Equal(t, "/", c.login("ada@example.com", "newpass99").location())

	res = c.get("/reset-password/" + token)
	assert.Equal(t, "/reset-password", res.location(), "tokens are single use")
}

func TestExpiredResetToken(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "Ada", "ada@example.com")
	c := f.client(t)
	c.get("/reset-password")
	c.post("/reset-password", url.Values{"email": {"ada@example.com"}})
	msg, _ := f.mailer.last()
	token := resetLink.FindStringSubmatch(msg.Text)[1]

	f.clock.Advance(2 * time.Hour)
	// The session cookie outlives the token.
	res := c.get("/reset-password/" + token)
	assert.Equal(t, "/reset-password", res.location())
	assert.Contains(t, c.get("/reset-password").body, "Password reset token is invalid or has expired.")
}

func TestNotFoundPage(t *testing.T) {
	f := newFixture(t)
	res := f.client(t).get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Contains(t, res.body, "Page Not Found!")
}

func TestSecurityHeaders(t *testing.T) {
	f := newFixture(t)
	res := f.client(t).get("/")
	assert.Equal(t, "nosniff", res.header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", res.header.Get("X-Frame-Options"))
	assert.NotEmpty(t, res.header.Get("Content-Security-Policy"))

	cookies := map[string]string{}
	for _, raw := range res.header.Values("Set-Cookie") {
		name, _, _ := strings.Cut(raw, "=")
		cookies[name] = raw
	}
	require.Contains(t, cookies, session.DefaultCookieName)
	assert.Contains(t, cookies[session.DefaultCookieName], "HttpOnly")
	require.Contains(t, cookies, csrfCookie)
	assert.Contains(t, cookies[csrfCookie], "HttpOnly")
	assert.Contains(t, cookies[csrfCookie], "SameSite=Lax")
}

func TestSanitizeQuery(t *testing.T) {
	f := newFixture(t)
	res := f.client(t).get("/products?page=%002")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "No Products Found!")
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	res := c.get("/static/js/admin.js")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "X-CSRF-Token")
	assert.Equal(t, http.StatusOK, c.get("/static/css/main.css").status)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	c.get("/")
	c.get("/missing")

	res := c.get("/metrics")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `storefront_http_requests_total{method="GET",route="/",status="200"} 1`)
	assert.Contains(t, res.body, `route="unmatched",status="404"`)
}
