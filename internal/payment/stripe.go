package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/domain"
)

// StripeOptions configures a StripeGateway.
type StripeOptions struct {
	// Currency is the ISO code charged in, default "usd".
	Currency string

	// APIURL overrides the Stripe API base URL (tests, stripe-mock).
	APIURL string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// StripeGateway creates Stripe Checkout sessions in payment mode.
type StripeGateway struct {
	api      *client.API
	currency string
}

// NewStripeGateway creates a gateway authenticated with secretKey.
func NewStripeGateway(secretKey string, opts StripeOptions) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	if opts.Currency == "" {
		opts.Currency = string(stripe.CurrencyUSD)
	}

	cfg := &stripe.BackendConfig{
		HTTPClient:        opts.HTTPClient,
		MaxNetworkRetries: stripe.Int64(1),
		EnableTelemetry:   stripe.Bool(false),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if opts.Logger != nil {
		// zap's sugared logger satisfies stripe.LeveledLoggerInterface.
		cfg.LeveledLogger = opts.Logger.Named("stripe").Sugar()
	}
	if opts.APIURL != "" {
		cfg.URL = stripe.String(opts.APIURL)
		cfg.MaxNetworkRetries = stripe.Int64(0)
	}

	return &StripeGateway{
		api:      client.New(secretKey, stripe.NewBackendsWithConfig(cfg)),
		currency: opts.Currency,
	}, nil
}

// CreateSession creates a Checkout session with inline price data.
func (g *StripeGateway) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if _, err := validateRequest(req); err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(userRef(req.UserID)),
	}
	params.Context = ctx
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for _, it := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.Description != "" {
			product.Description = stripe.String(it.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(g.currency),
				UnitAmount:  stripe.Int64(int64(it.UnitAmount)),
				ProductData: product,
			},
			Quantity: stripe.Int64(int64(it.Quantity)),
		})
	}

	cs, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create session: %w", err)
	}
	return fromStripe(cs), nil
}

// Session retrieves a Checkout session by id.
func (g *StripeGateway) Session(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return nil, domain.NotFound("Checkout session")
		}
		return nil, fmt.Errorf("stripe get session %s: %w", id, err)
	}
	return fromStripe(cs), nil
}

func fromStripe(cs *stripe.CheckoutSession) *Session {
	s := &Session{
		ID:     cs.ID,
		URL:    cs.URL,
		UserID: parseUserRef(cs.ClientReferenceID),
		Paid:   cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Total:  domain.Money(cs.AmountTotal),
	}
	switch cs.Status {
	case stripe.CheckoutSessionStatusComplete:
		s.Status = StatusComplete
	case stripe.CheckoutSessionStatusExpired:
		s.Status = StatusExpired
	default:
		s.Status = StatusOpen
	}
	return s
}
