package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

// Flash kinds.
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

// Session is one visitor's state. It is not safe for concurrent use; each
// request works on its own copy.
type Session struct {
	id      string
	oldID   string
	isNew   bool
	changed bool
	gone    bool
	expires time.Time

	userID int64
	data   payload
}

// payload is the JSON document stored in the sessions table.
type payload struct {
	Flash    map[string][]string `json:"flash,omitempty"`
	Checkout string              `json:"checkout,omitempty"`
}

func newSession() (*Session, error) {
	id, err := randomToken()
	if err != nil {
		return nil, err
	}
	return &Session{id: id, isNew: true, changed: true}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool { return s.isNew }

// UserID returns the logged-in user, or 0.
func (s *Session) UserID() int64 { return s.userID }

// LoggedIn reports whether a user is attached.
func (s *Session) LoggedIn() bool { return s.userID != 0 }

// SetUser attaches or (with 0) detaches a user.
func (s *Session) SetUser(id int64) {
	if s.userID != id {
		s.userID = id
		s.changed = true
	}
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(kind, msg string) {
	if s.data.Flash == nil {
		s.data.Flash = make(map[string][]string)
	}
	s.data.Flash[kind] = append(s.data.Flash[kind], msg)
	s.changed = true
}

// Flashes returns and clears the messages of kind.
func (s *Session) Flashes(kind string) []string {
	msgs := s.data.Flash[kind]
	if len(msgs) == 0 {
		return nil
	}
	delete(s.data.Flash, kind)
	s.changed = true
	return msgs
}

// PendingCheckout returns the id of a payment session started but not yet
// completed.
func (s *Session) PendingCheckout() string { return s.data.Checkout }

// SetPendingCheckout records (or with "" clears) the pending payment session.
func (s *Session) SetPendingCheckout(id string) {
	if s.data.Checkout != id {
		s.data.Checkout = id
		s.changed = true
	}
}

func (s *Session) encode() ([]byte, error) {
	b, err := json.Marshal(s.data)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return b, nil
}

func decode(id string, userID int64, expires time.Time, raw []byte) (*Session, error) {
	s := &Session{id: id, userID: userID, expires: expires}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// randomToken returns 32 random bytes, base64url encoded.
func randomToken() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", errors.New("random token: entropy source failed")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
