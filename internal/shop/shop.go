package shop

import (
	"context"
	"mime/multipart"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/clock"
	"github.com/roach88/storefront/internal/invoice"
	"github.com/roach88/storefront/internal/mail"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/payment"
	"github.com/roach88/storefront/internal/store"
)

// DefaultPerPage is the listing page size when Config.PerPage is zero.
const DefaultPerPage = 2

// Images stores product images.
type Images interface {
	Save(fh *multipart.FileHeader) (string, error)
	Delete(urlPath string) error
}

// Config tunes the service.
type Config struct {
	PerPage int
	Seller  invoice.Seller

	// NewNumber generates public order numbers. Defaults to UUIDv7 strings.
	NewNumber func() string
}

// Service implements the shop operations.
type Service struct {
	store    *store.Store
	images   Images
	payments payment.Gateway
	mailer   mail.Mailer
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
	cfg      Config
}

// Deps are the collaborators of a Service. Metrics may be nil.
type Deps struct {
	Store    *store.Store
	Images   Images
	Payments payment.Gateway
	Mailer   mail.Mailer
	Clock    clock.Clock
	Log      *zap.Logger
	Metrics  *metrics.Metrics
}

// New creates a Service.
func New(d Deps, cfg Config) *Service {
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.Seller.Name == "" {
		cfg.Seller = invoice.DefaultSeller
	}
	if cfg.NewNumber == nil {
		cfg.NewNumber = newOrderNumber
	}
	return &Service{
		store:    d.Store,
		images:   d.Images,
		payments: d.Payments,
		mailer:   d.Mailer,
		clock:    d.Clock,
		log:      d.Log,
		metrics:  d.Metrics,
		cfg:      cfg,
	}
}

// PerPage returns the listing page size.
func (s *Service) PerPage() int { return s.cfg.PerPage }

// newOrderNumber returns a time-ordered UUIDv7.
func newOrderNumber() string {
	return uuid.Must(uuid.NewV7()).String()
}

// send queues msg; a mail failure never fails the operation.
func (s *Service) send(ctx context.Context, msg mail.Message) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn("email not queued", zap.String("subject", msg.Subject), zap.Error(err))
	}
}
