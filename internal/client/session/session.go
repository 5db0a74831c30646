// Package session owns the client's authentication token slot.
//
// A Session is created once at startup and handed to the API client. It is
// the only place the token lives: the client reads it for every request
// and invalidates it when the server answers 401, which in turn fires the
// registered unauthorized handlers (the CLI uses this to drop back to the
// login prompt).
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

// Claims are the token fields the client cares about. They are read
// without verifying the signature; the server remains the authority.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

type Session struct {
	mu       sync.RWMutex
	token    string
	store    TokenStore
	handlers []func()
	log      logging.Logger
	now      func() time.Time
}

func New(store TokenStore, log logging.Logger) *Session {
	return &Session{store: store, log: log, now: time.Now}
}

// Restore loads a previously saved token. An expired token is cleared and
// Restore reports false.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	token, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	if s.expired(token) {
		s.log.Info(ctx, "stored session expired")
		if err := s.store.Clear(ctx); err != nil {
			return false, err
		}
		return false, nil
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return true, nil
}

// Token returns the current token, or "" when logged out or expired.
func (s *Session) Token() string {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" || s.expired(token) {
		return ""
	}
	return token
}

// Held reports whether the slot holds a token, expired or not. An expired
// token is not sent, but a 401 answered while one is held still ends the
// session.
func (s *Session) Held() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken stores a freshly issued token.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := s.store.Save(ctx, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear drops the token (logout).
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return s.store.Clear(ctx)
}

// Invalidate clears the token after the server rejected it and notifies
// the unauthorized handlers.
func (s *Session) Invalidate(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		s.log.Error(ctx, "failed to clear token", "error", err)
	}

	s.mu.RLock()
	handlers := append([]func(){}, s.handlers...)
	s.mu.RUnlock()

	for _, h := range handlers {
		h()
	}
}

// OnUnauthorized registers fn to run on every Invalidate.
func (s *Session) OnUnauthorized(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// Claims decodes the current token. ok is false for an empty or opaque
// token.
func (s *Session) Claims() (Claims, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	return parseClaims(token)
}

func (s *Session) expired(token string) bool {
	c, ok := parseClaims(token)
	if !ok || c.ExpiresAt.IsZero() {
		return false
	}
	return !s.now().Before(c.ExpiresAt)
}

func parseClaims(token string) (Claims, bool) {
	if token == "" {
		return Claims{}, false
	}

	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, false
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, true
}
