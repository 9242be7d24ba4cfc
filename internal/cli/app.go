package cli

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"

	"github.com/roach88/storefront/internal/auth"
	"github.com/roach88/storefront/internal/clock"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/logging"
	"github.com/roach88/storefront/internal/mail"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/payment"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/shop"
	"github.com/roach88/storefront/internal/store"
	"github.com/roach88/storefront/internal/uploads"
)

// app is the fully wired storefront shared by the subcommands.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	clock    clock.Clock
	metrics  *metrics.Metrics
	images   *uploads.Storage
	queue    *mail.Queue // nil unless queued delivery was requested
	auth     *auth.Service
	shop     *shop.Service
	sessions *session.Manager
	csrfKey  []byte
}

// appOptions selects optional parts of the wiring.
type appOptions struct {
	// Queue sends email through a background queue. The caller must run it.
	Queue bool

	// Clock overrides the wall clock (tests).
	Clock clock.Clock
}

// loadConfig reads the config named by --config and applies --db.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	return cfg, nil
}

// openApp builds every service from the configuration. Close releases them.
func openApp(opts *RootOptions, aopts appOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(opts.Verbose || cfg.Log.Verbose, cfg.Log.Format)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}

	a := &app{cfg: cfg, log: log, clock: aopts.Clock}
	if a.clock == nil {
		a.clock = clock.System{}
	}
	if cfg.Server.Metrics {
		a.metrics = metrics.New()
	}

	a.store, err = store.Open(cfg.Database.Path)
	if err != nil {
		_ = log.Sync()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	log.Debug("database ready", zap.String("path", cfg.Database.Path))

	if err := a.wire(aopts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(aopts appOptions) error {
	cfg := a.cfg

	var err error
	a.images, err = uploads.New(cfg.Uploads.Dir, cfg.Uploads.URLPrefix, a.clock)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to prepare uploads", err)
	}

	mailer, err := newMailer(cfg.Mail, a.log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up mail", err)
	}
	if aopts.Queue {
		a.queue = mail.NewQueue(mailer, a.log, a.metrics, cfg.Mail.QueueSize)
		mailer = a.queue
	}

	gateway, err := newGateway(cfg.Payment, a.log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up payments", err)
	}

	a.auth = auth.New(a.store, mailer, a.clock, a.log, a.metrics, auth.Config{
		Cost:     cfg.Auth.BcryptCost,
		BaseURL:  cfg.Server.BaseURL,
		ResetTTL: cfg.Auth.ResetTTL,
	})
	a.shop = shop.New(shop.Deps{
		Store:    a.store,
		Images:   a.images,
		Payments: gateway,
		Mailer:   mailer,
		Clock:    a.clock,
		Log:      a.log,
		Metrics:  a.metrics,
	}, shop.Config{
		PerPage: cfg.Shop.PerPage,
		Seller:  cfg.Seller.Invoice(),
	})
	hashKey, csrfKey, err := cookieKeys(cfg.Session.Secret)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to derive cookie keys", err)
	}
	a.csrfKey = csrfKey
	a.sessions = session.NewManager(a.store, a.clock, a.log, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
		HashKey:    hashKey,
	})
	return nil
}

// cookieKeys derives the session signing key and the CSRF key from secret.
// An empty secret yields random keys.
func cookieKeys(secret string) (hashKey, csrfKey []byte, err error) {
	if secret == "" {
		hashKey, csrfKey = securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)
		if hashKey == nil || csrfKey == nil {
			return nil, nil, errors.New("generate random cookie keys")
		}
		return hashKey, csrfKey, nil
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("storefront cookies"))
	hashKey, csrfKey = make([]byte, 32), make([]byte, 32)
	if _, err := io.ReadFull(r, hashKey); err != nil {
		return nil, nil, err
	}
	if _, err := io.ReadFull(r, csrfKey); err != nil {
		return nil, nil, err
	}
	return hashKey, csrfKey, nil
}

// Close closes the queue, then the database, and flushes the logger.
func (a *app) Close() error {
	if a.queue != nil {
		a.queue.Close()
	}
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	// Sync on stderr fails with EINVAL on some platforms; not worth reporting.
	_ = a.log.Sync()
	return errors.Join(errs...)
}

func newMailer(cfg config.MailConfig, log *zap.Logger) (mail.Mailer, error) {
	switch cfg.Driver {
	case config.MailDriverSMTP:
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		})
	case config.MailDriverLog, "":
		return mail.NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

func newGateway(cfg config.PaymentConfig, log *zap.Logger) (payment.Gateway, error) {
	switch cfg.Provider {
	case config.PaymentStripe:
		return payment.NewStripeGateway(cfg.StripeSecretKey, payment.StripeOptions{
			Currency: cfg.Currency,
			Logger:   log,
		})
	case config.PaymentOffline, "":
		return payment.NewOfflineGateway(cfg.OfflineAutoPay), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}
