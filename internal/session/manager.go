package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/clock"
	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/store"
)

// Store persists sessions.
type Store interface {
	SaveSession(ctx context.Context, rec store.SessionRecord) error
	LoadSession(ctx context.Context, id string, now time.Time) (store.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool

	// HashKey signs the cookie value. A random key is generated when
	// empty, which invalidates every session on restart.
	HashKey []byte
}

// Defaults for zero Options fields.
const (
	DefaultCookieName = "storefront.sid"
	DefaultTTL        = 24 * time.Hour
)

// Manager loads and saves sessions.
type Manager struct {
	store Store
	clock clock.Clock
	log   *zap.Logger
	opts  Options
	codec *securecookie.SecureCookie
}

// NewManager creates a Manager.
func NewManager(st Store, clk clock.Clock, log *zap.Logger, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if len(opts.HashKey) == 0 {
		opts.HashKey = securecookie.GenerateRandomKey(32)
	}
	// Expiry is enforced by the sessions table against the injected clock.
	codec := securecookie.New(opts.HashKey, nil).MaxAge(0)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Manager{store: st, clock: clk, log: log, opts: opts, codec: codec}
}

// CookieName returns the session cookie name.
func (m *Manager) CookieName() string { return m.opts.CookieName }

// Load returns the session named by the request cookie, or a new session
// when the cookie is absent, unknown or expired.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	if id, ok := m.cookieID(r); ok {
		rec, err := m.store.LoadSession(ctx, id, m.clock.Now())
		switch {
		case err == nil:
			s, err := decode(rec.ID, rec.UserID, rec.ExpiresAt, rec.Data)
			if err == nil {
				return s, nil
			}
			m.log.Warn("discarding unreadable session", zap.Error(err))
		case !domain.IsNotFound(err):
			return nil, fmt.Errorf("load session: %w", err)
		}
	}
	return newSession()
}

// Save persists s and refreshes the cookie when s changed or has used up
// half its lifetime. Destroyed sessions are not saved.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	now := m.clock.Now()
	if s.gone || (!s.changed && s.expires.Sub(now) > m.opts.TTL/2) {
		return nil
	}
	data, err := s.encode()
	if err != nil {
		return err
	}
	expires := now.Add(m.opts.TTL)
	value, err := m.codec.Encode(m.opts.CookieName, s.id)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	if err := m.store.SaveSession(ctx, store.SessionRecord{
		ID:        s.id,
		UserID:    s.userID,
		Data:      data,
		ExpiresAt: expires,
	}); err != nil {
		return err
	}
	if s.oldID != "" {
		if err := m.store.DeleteSession(ctx, s.oldID); err != nil {
			return err
		}
		s.oldID = ""
	}
	http.SetCookie(w, m.cookie(value, expires))
	s.changed, s.isNew, s.expires = false, false, expires
	return nil
}

// Renew gives s a fresh id, keeping its contents. Call on login so a
// session id seen before authentication is never trusted afterwards.
func (m *Manager) Renew(s *Session) error {
	id, err := randomToken()
	if err != nil {
		return err
	}
	if !s.isNew && s.oldID == "" {
		s.oldID = s.id
	}
	s.id = id
	s.changed = true
	return nil
}

// Destroy deletes s and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	s.gone = true
	if err := m.store.DeleteSession(ctx, s.id); err != nil {
		return err
	}
	if s.oldID != "" {
		if err := m.store.DeleteSession(ctx, s.oldID); err != nil {
			return err
		}
	}
	c := m.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	return nil
}

// Sweep deletes expired sessions every interval until ctx is done.
func (m *Manager) Sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.store.DeleteExpiredSessions(ctx, m.clock.Now())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.log.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				m.log.Debug("expired sessions removed", zap.Int64("count", n))
			}
		}
	}
}

// cookieID returns the session id carried by r's signed cookie.
func (m *Manager) cookieID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	var id string
	if err := m.codec.Decode(m.opts.CookieName, c.Value, &id); err != nil {
		m.log.Debug("ignoring session cookie", zap.Error(err))
		return "", false
	}
	return id, id != ""
}

func (m *Manager) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
