package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/storefront/internal/clock"
	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/mail"
	"github.com/roach88/storefront/internal/metrics"
	"github.com/roach88/storefront/internal/validate"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultCost     = 12
	DefaultResetTTL = time.Hour
	tokenBytes      = 32
)

// Users is the storage the service needs.
type Users interface {
	CreateUser(ctx context.Context, name, email, passwordHash string, now time.Time) (domain.User, error)
	UserByID(ctx context.Context, id int64) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	SetResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	UserByResetToken(ctx context.Context, token string, now time.Time) (domain.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// Config tunes the service.
type Config struct {
	// Cost is the bcrypt cost. Tests use bcrypt.MinCost.
	Cost int

	// BaseURL prefixes links in emails, e.g. "http://localhost:3000".
	BaseURL string

	ResetTTL time.Duration
}

// Service handles account operations.
type Service struct {
	users   Users
	mailer  mail.Mailer
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
	cfg     Config
}

// New creates a Service. m may be nil.
func New(users Users, mailer mail.Mailer, clk clock.Clock, log *zap.Logger, m *metrics.Metrics, cfg Config) *Service {
	if cfg.Cost == 0 {
		cfg.Cost = DefaultCost
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Service{users: users, mailer: mailer, clock: clk, log: log, metrics: m, cfg: cfg}
}

// errBadCredentials is shared by unknown-email and wrong-password failures.
func errBadCredentials() error {
	return domain.Unauthorized("Invalid email or password.")
}

// Signup validates the form, creates the account and queues a welcome email.
// A taken email is CONFLICT.
func (s *Service) Signup(ctx context.Context, form validate.SignupForm) (domain.User, error) {
	f, err := validate.Signup(form)
	if err != nil {
		return domain.User{}, err
	}

	hash, err := s.hash(f.Password)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.users.CreateUser(ctx, f.Name, f.Email, hash, s.clock.Now())
	if err != nil {
		return domain.User{}, err
	}
	s.metrics.Signup()
	s.log.Info("user signed up", zap.Int64("user_id", u.ID))

	s.send(ctx, mail.Welcome(u.Email, u.Name))
	return u, nil
}

// Authenticate returns the user for a valid email/password pair.
// Any mismatch is UNAUTHORIZED with the same message.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email, password, err := validate.Login(email, password)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.users.UserByEmail(ctx, email)
	if domain.IsNotFound(err) {
		return domain.User{}, errBadCredentials()
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domain.User{}, errBadCredentials()
		}
		return domain.User{}, fmt.Errorf("authenticate: %w", err)
	}
	return u, nil
}

// User returns the account with id.
func (s *Service) User(ctx context.Context, id int64) (domain.User, error) {
	return s.users.UserByID(ctx, id)
}

// RequestReset issues a reset token for email and mails the link.
// An unknown email is NOT_FOUND.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email, err := validate.ResetRequest(email)
	if err != nil {
		return err
	}

	u, err := s.users.UserByEmail(ctx, email)
	if domain.IsNotFound(err) {
		return &domain.Error{Code: domain.ErrCodeNotFound, Message: "No account with that email found."}
	}
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}
	if err := s.users.SetResetToken(ctx, u.ID, token, s.clock.Now().Add(s.cfg.ResetTTL)); err != nil {
		return err
	}

	s.send(ctx, mail.PasswordReset(u.Email, s.cfg.BaseURL+"/reset-password/"+token))
	return nil
}

// CheckResetToken returns the user owning an unexpired token.
// Unknown and expired tokens are EXPIRED.
func (s *Service) CheckResetToken(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, errInvalidToken()
	}
	u, err := s.users.UserByResetToken(ctx, token, s.clock.Now())
	if domain.IsNotFound(err) {
		return domain.User{}, errInvalidToken()
	}
	return u, err
}

// ResetPassword sets a new password when the token is valid for the user.
// The token is consumed.
func (s *Service) ResetPassword(ctx context.Context, form validate.NewPasswordForm) error {
	f, err := validate.NewPassword(form)
	if err != nil {
		return err
	}
	userID, _ := validate.ID(f.UserID)

	u, err := s.CheckResetToken(ctx, f.Token)
	if err != nil {
		return err
	}
	if u.ID != userID {
		return errInvalidToken()
	}

	hash, err := s.hash(f.Password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.log.Info("password reset", zap.Int64("user_id", u.ID))
	return nil
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// send hands msg to the mailer; failures never fail the caller.
func (s *Service) send(ctx context.Context, msg mail.Message) {
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn("email not queued", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func errInvalidToken() error {
	return domain.Expired("Password reset link is invalid or has expired.")
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
