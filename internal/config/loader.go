package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "STOREFRONT"

// MinSessionSecret is the shortest accepted session.secret.
const MinSessionSecret = 32

// Load returns DefaultConfig overlaid with the YAML file at path (skipped
// when path is empty) and STOREFRONT_* environment variables. The result
// is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("payment.stripe_secret_key",
		EnvPrefix+"_PAYMENT_STRIPE_SECRET_KEY", EnvPrefix+"_STRIPE_SECRET_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables can override
// keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.metrics", d.Server.Metrics)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("shop.per_page", d.Shop.PerPage)
	v.SetDefault("uploads.dir", d.Uploads.Dir)
	v.SetDefault("uploads.url_prefix", d.Uploads.URLPrefix)
	v.SetDefault("session.cookie_name", d.Session.CookieName)
	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.secure", d.Session.Secure)
	v.SetDefault("session.sweep_interval", d.Session.SweepInterval)
	v.SetDefault("session.secret", d.Session.Secret)
	v.SetDefault("auth.bcrypt_cost", d.Auth.BcryptCost)
	v.SetDefault("auth.reset_ttl", d.Auth.ResetTTL)
	v.SetDefault("mail.driver", d.Mail.Driver)
	v.SetDefault("mail.from", d.Mail.From)
	v.SetDefault("mail.host", d.Mail.Host)
	v.SetDefault("mail.port", d.Mail.Port)
	v.SetDefault("mail.username", d.Mail.Username)
	v.SetDefault("mail.password", d.Mail.Password)
	v.SetDefault("mail.queue_size", d.Mail.QueueSize)
	v.SetDefault("payment.provider", d.Payment.Provider)
	v.SetDefault("payment.stripe_secret_key", d.Payment.StripeSecretKey)
	v.SetDefault("payment.currency", d.Payment.Currency)
	v.SetDefault("payment.offline_auto_pay", d.Payment.OfflineAutoPay)
	v.SetDefault("seller.name", d.Seller.Name)
	v.SetDefault("seller.address", d.Seller.Address)
	v.SetDefault("seller.email", d.Seller.Email)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.verbose", d.Log.Verbose)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	if u, err := url.Parse(c.Server.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("server.base_url must be an absolute http(s) URL, got %q", c.Server.BaseURL)
	}
	if c.Database.Path == "" {
		add("database.path is required")
	}
	if c.Shop.PerPage < 1 {
		add("shop.per_page must be positive")
	}
	if c.Uploads.Dir == "" {
		add("uploads.dir is required")
	}
	if !strings.HasPrefix(c.Uploads.URLPrefix, "/") {
		add("uploads.url_prefix must start with /")
	}
	if c.Session.TTL <= 0 {
		add("session.ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		add("session.sweep_interval must be positive")
	}
	if n := len(c.Session.Secret); n > 0 && n < MinSessionSecret {
		add("session.secret must be at least %d bytes, got %d", MinSessionSecret, n)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		add("auth.bcrypt_cost must be between 4 and 31")
	}
	if c.Auth.ResetTTL <= 0 {
		add("auth.reset_ttl must be positive")
	}

	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.Mail.Host == "" {
			add("mail.host is required for the smtp driver")
		}
		if c.Mail.From == "" {
			add("mail.from is required for the smtp driver")
		}
	default:
		add("mail.driver must be %q or %q, got %q", MailDriverLog, MailDriverSMTP, c.Mail.Driver)
	}

	switch c.Payment.Provider {
	case PaymentOffline:
	case PaymentStripe:
		if c.Payment.StripeSecretKey == "" {
			add("payment.stripe_secret_key is required for the stripe provider")
		}
	default:
		add("payment.provider must be %q or %q, got %q", PaymentOffline, PaymentStripe, c.Payment.Provider)
	}

	switch c.Log.Format {
	case "", "json", "console":
	default:
		add("log.format must be \"json\" or \"console\", got %q", c.Log.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
