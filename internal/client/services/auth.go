// Package services contains the application services of the document
// control client. Each one owns a slice of client-side state (document
// cache, lock controller, history, content preview, task board) and keeps
// it in line with the server, which is always the source of truth.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/doccontrol/internal/client/client"
	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/client/session"
	"github.com/dmitrijs2005/doccontrol/internal/common"
	"github.com/dmitrijs2005/doccontrol/internal/logging"
)

// Identity reports the acting user, or nil when logged out.
type Identity interface {
	CurrentUser() *models.User
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: exchange credentials for a token, persist it, resolve the user.
//   - Register: create an account on the server (does not log in).
//   - Restore: resume a saved session; returns nil when there is none.
//   - CurrentUser: the user resolved by Login or Restore.
//   - Logout: clear the token slot.
//
// Password buffers are wiped before returning.
type AuthService interface {
	Identity
	Login(ctx context.Context, username string, password []byte) (*models.User, error)
	Register(ctx context.Context, email, fullName string, password []byte) (*models.User, error)
	Restore(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
}

type authService struct {
	client  client.Client
	session *session.Session
	log     logging.Logger

	mu   sync.RWMutex
	user *models.User
}

// NewAuthService constructs an AuthService bound to the API client and the
// session the client reads its token from.
func NewAuthService(c client.Client, s *session.Session, log logging.Logger) AuthService {
	a := &authService{client: c, session: s, log: log}
	s.OnUnauthorized(func() { a.setUser(nil) })
	return a
}

func (a *authService) setUser(u *models.User) {
	a.mu.Lock()
	a.user = u
	a.mu.Unlock()
}

func (a *authService) CurrentUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *authService) Login(ctx context.Context, username string, password []byte) (*models.User, error) {
	defer common.WipeByteArray(password)

	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}

	tok, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := a.session.SetToken(ctx, tok.AccessToken); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	u, err := a.client.Me(ctx)
	if err != nil {
		if cerr := a.session.Clear(ctx); cerr != nil {
			a.log.Error(ctx, "failed to clear session", "error", cerr)
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	a.setUser(u)
	a.log.Info(ctx, "logged in", "user_id", u.ID)
	return u, nil
}

func (a *authService) Register(ctx context.Context, email, fullName string, password []byte) (*models.User, error) {
	defer common.WipeByteArray(password)

	email = strings.TrimSpace(email)
	if email == "" || len(password) == 0 {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	u, err := a.client.Register(ctx, models.UserCreate{
		Email:    email,
		Password: string(password),
		FullName: strings.TrimSpace(fullName),
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return u, nil
}

// Restore resumes a saved session. A rejected token is not an error: the
// client has already cleared it and Restore returns nil.
func (a *authService) Restore(ctx context.Context) (*models.User, error) {
	ok, err := a.session.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	u, err := a.client.Me(ctx)
	if client.IsUnauthorized(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	a.setUser(u)
	return u, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.setUser(nil)
	return a.session.Clear(ctx)
}
