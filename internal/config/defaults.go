package config

import (
	"os"
	"time"

	"github.com/roach88/storefront/internal/invoice"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/shop"
)

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			BaseURL:         "http://localhost:3000",
			ShutdownTimeout: 10 * time.Second,
			Metrics:         true,
		},
		Database: DatabaseConfig{Path: "storefront.db"},
		Shop:     ShopConfig{PerPage: shop.DefaultPerPage},
		Uploads:  UploadsConfig{Dir: "images", URLPrefix: "/images"},
		Session: SessionConfig{
			CookieName:    session.DefaultCookieName,
			TTL:           session.DefaultTTL,
			SweepInterval: 15 * time.Minute,
		},
		Auth: AuthConfig{BcryptCost: 12, ResetTTL: time.Hour},
		Mail: MailConfig{
			Driver:    MailDriverLog,
			From:      invoice.DefaultSeller.Email,
			Port:      587,
			QueueSize: 64,
		},
		Payment: PaymentConfig{Provider: PaymentOffline, Currency: "usd"},
		Seller: SellerConfig{
			Name:    invoice.DefaultSeller.Name,
			Address: append([]string(nil), invoice.DefaultSeller.Address...),
			Email:   invoice.DefaultSeller.Email,
		},
		Log: LogConfig{Format: "json"},
	}
}

// Invoice converts the seller block for the invoice renderer.
func (s SellerConfig) Invoice() invoice.Seller {
	return invoice.Seller{
		Name:    s.Name,
		Address: append([]string(nil), s.Address...),
		Email:   s.Email,
	}
}

// WriteDefault writes a commented configuration file with the defaults.
func WriteDefault(path string) error {
	content := `# Storefront configuration.
# Every key can be overridden with an environment variable, e.g.
# STOREFRONT_SERVER_ADDR=:8080 or STOREFRONT_STRIPE_SECRET_KEY=sk_test_...

server:
  addr: ":3000"
  base_url: http://localhost:3000
  shutdown_timeout: 10s
  metrics: true   # serve Prometheus metrics on /metrics

database:
  path: storefront.db

shop:
  per_page: 2

uploads:
  dir: images
  url_prefix: /images

session:
  cookie_name: storefront.sid
  ttl: 24h
  secure: false   # set when served over HTTPS
  sweep_interval: 15m

auth:
  bcrypt_cost: 12
  reset_ttl: 1h

mail:
  driver: log     # "log" or "smtp"
  from: contact@storefront.example
  # host: smtp.example.com
  # port: 587
  # username: ""
  # password: ""
  queue_size: 64

payment:
  provider: offline   # "offline" or "stripe"
  currency: usd
  # stripe_secret_key: sk_test_...
  offline_auto_pay: false

seller:
  name: Storefront
  address:
    - 123 Business Street
    - City, State 12345
  email: contact@storefront.example

log:
  format: json    # "json" or "console"
  verbose: false
`
	return os.WriteFile(path, []byte(content), 0o644)
}
