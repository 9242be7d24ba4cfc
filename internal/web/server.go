package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/auth"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/shop"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// maxUploadBytes bounds request bodies; product images are the largest.
const maxUploadBytes = 6 << 20

// Config holds the HTTP-facing settings.
type Config struct {
	// BaseURL is the externally visible origin, used for payment redirects.
	BaseURL string

	// CSRFKey authenticates the CSRF cookie (32 bytes). A random key is
	// used when empty.
	CSRFKey []byte

	// SecureCookies marks cookies Secure and makes CSRF checks expect TLS.
	SecureCookies bool
}

// Images exposes where uploaded product images live on disk.
type Images interface {
	Dir() string
	URLPrefix() string
}

// Deps are the services behind the handlers. Metrics may be nil.
type Deps struct {
	Auth     *auth.Service
	Shop     *shop.Service
	Sessions *session.Manager
	Images   Images
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// Server is the storefront web server.
type Server struct {
	auth     *auth.Service
	shop     *shop.Service
	sessions *session.Manager
	metrics  *metrics.Metrics
	log      *zap.Logger
	cfg      Config
	router   *gin.Engine
}

// NewServer creates the server and registers every route.
func NewServer(d Deps, cfg Config) (*Server, error) {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes
	router.SetHTMLTemplate(tmpl)

	s := &Server{
		auth:     d.Auth,
		shop:     d.Shop,
		sessions: d.Sessions,
		metrics:  d.Metrics,
		log:      d.Log.Named("web"),
		cfg:      cfg,
		router:   router,
	}

	router.Use(s.requestLog(), s.observe(), gin.CustomRecovery(s.recovered), securityHeaders())
	router.StaticFS("/static", http.FS(static))
	router.Static(d.Images.URLPrefix(), d.Images.Dir())
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	app := router.Group("/", s.sanitize(), s.session(), s.loadUser(), s.csrf())

	// Shop
	app.GET("/", s.handleIndex)
	app.GET("/products", s.handleProducts)
	app.GET("/products/:productId", s.handleProduct)

	member := app.Group("/", s.requireAuth())
	member.GET("/cart", s.handleCart)
	member.POST("/cart", s.handleAddToCart)
	member.POST("/cart-delete-item", s.handleRemoveFromCart)
	member.GET("/orders", s.handleOrders)
	member.POST("/create-order", s.handleCreateOrder)
	member.GET("/orders/:orderId", s.handleInvoice)
	member.GET("/checkout", s.handleCheckout)
	member.GET("/checkout/success", s.handleCheckoutSuccess)
	member.GET("/checkout/cancel", s.handleCheckoutCancel)

	// Admin
	admin := app.Group("/admin", s.requireAuth())
	{
		admin.GET("/products", s.handleAdminProducts)
		admin.GET("/add-product", s.handleAddProductForm)
		admin.POST("/add-product", s.handleAddProduct)
		admin.GET("/edit-product/:productId", s.handleEditProductForm)
		admin.POST("/edit-product", s.handleEditProduct)
		admin.DELETE("/product/:productId", s.handleDeleteProductJSON)
		admin.POST("/delete-product", s.handleDeleteProduct)
	}

	// Auth
	app.GET("/login", s.handleLoginForm)
	app.POST("/login", s.handleLogin)
	app.GET("/signup", s.handleSignupForm)
	app.POST("/signup", s.handleSignup)
	app.POST("/logout", s.handleLogout)
	app.GET("/reset-password", s.handleResetForm)
	app.POST("/reset-password", s.handleReset)
	app.GET("/reset-password/:token", s.handleNewPasswordForm)
	app.POST("/new-password", s.handleNewPassword)

	router.NoRoute(s.sanitize(), s.session(), s.loadUser(), s.handleNotFound)

	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"dict": dict,
		"date": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	}).ParseFS(templateFS, "templates/*/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// dict builds a map from alternating keys and values for sub-templates.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}
