package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/storefront/internal/domain"
)

// OfflineGateway is an in-memory Gateway for development and tests.
// Sessions are complete and paid on creation unless autoPay is false.
type OfflineGateway struct {
	mu       sync.Mutex
	autoPay  bool
	sessions map[string]*Session
}

// NewOfflineGateway creates an empty gateway.
func NewOfflineGateway(autoPay bool) *OfflineGateway {
	return &OfflineGateway{autoPay: autoPay, sessions: make(map[string]*Session)}
}

// CreateSession records a session and returns the success URL as its
// redirect target, so the customer lands straight back in the shop.
func (g *OfflineGateway) CreateSession(_ context.Context, req CheckoutRequest) (*Session, error) {
	total, err := validateRequest(req)
	if err != nil {
		return nil, err
	}
	id := "cs_offline_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s := &Session{
		ID:     id,
		URL:    strings.ReplaceAll(req.SuccessURL, SessionIDPlaceholder, id),
		UserID: req.UserID,
		Status: StatusOpen,
		Total:  total,
	}
	if g.autoPay {
		s.Status, s.Paid = StatusComplete, true
	}

	g.mu.Lock()
	g.sessions[id] = s
	g.mu.Unlock()

	out := *s
	return &out, nil
}

// Session returns a copy of the session with id.
func (g *OfflineGateway) Session(_ context.Context, id string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, domain.NotFound("Checkout session")
	}
	out := *s
	return &out, nil
}

// MarkPaid completes a session as if the customer had paid.
func (g *OfflineGateway) MarkPaid(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return domain.NotFound("Checkout session")
	}
	s.Status, s.Paid = StatusComplete, true
	return nil
}
