package config

import "time"

// Config is the full storefront configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Shop     ShopConfig     `yaml:"shop" mapstructure:"shop"`
	Uploads  UploadsConfig  `yaml:"uploads" mapstructure:"uploads"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Mail     MailConfig     `yaml:"mail" mapstructure:"mail"`
	Payment  PaymentConfig  `yaml:"payment" mapstructure:"payment"`
	Seller   SellerConfig   `yaml:"seller" mapstructure:"seller"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`

	// BaseURL is the public origin used in emails and payment redirects.
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	Metrics         bool          `yaml:"metrics" mapstructure:"metrics"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ShopConfig tunes listings.
type ShopConfig struct {
	PerPage int `yaml:"per_page" mapstructure:"per_page"`
}

// UploadsConfig locates product images.
type UploadsConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	URLPrefix string `yaml:"url_prefix" mapstructure:"url_prefix"`
}

// SessionConfig configures the session cookie and its cleanup.
type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name" mapstructure:"cookie_name"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Secure        bool          `yaml:"secure" mapstructure:"secure"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`

	// Secret keys the session cookie signature and the CSRF cookie. At
	// least 32 bytes; when empty, random keys are used per process.
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// AuthConfig configures password hashing and resets.
type AuthConfig struct {
	BcryptCost int           `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
	ResetTTL   time.Duration `yaml:"reset_ttl" mapstructure:"reset_ttl"`
}

// Mail drivers.
const (
	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
)

// MailConfig selects how email leaves the process.
type MailConfig struct {
	Driver    string `yaml:"driver" mapstructure:"driver"`
	From      string `yaml:"from" mapstructure:"from"`
	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
	QueueSize int    `yaml:"queue_size" mapstructure:"queue_size"`
}

// Payment providers.
const (
	PaymentOffline = "offline"
	PaymentStripe  = "stripe"
)

// PaymentConfig selects the checkout gateway.
type PaymentConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"`
	StripeSecretKey string `yaml:"stripe_secret_key" mapstructure:"stripe_secret_key"`
	Currency        string `yaml:"currency" mapstructure:"currency"`

	// OfflineAutoPay marks offline sessions paid on creation.
	OfflineAutoPay bool `yaml:"offline_auto_pay" mapstructure:"offline_auto_pay"`
}

// SellerConfig is printed on invoices.
type SellerConfig struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Address []string `yaml:"address" mapstructure:"address"`
	Email   string   `yaml:"email" mapstructure:"email"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Format is "json" or "console".
	Format  string `yaml:"format" mapstructure:"format"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}
