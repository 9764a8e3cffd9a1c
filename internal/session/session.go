// Package session signs the user in and out and owns the stored auth token.
package session

import (
	"context"
	"errors"
	"sync"

	"expense-wallet/internal/api"
	"expense-wallet/internal/models"

	"github.com/rs/zerolog"
)

// ErrMissingToken is returned when a successful login response carries no token.
var ErrMissingToken = errors.New("login response has no Authorization token")

// Authenticator performs the login and logout calls.
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error)
	Logout(ctx context.Context) error
}

// TokenStore persists the auth token.
type TokenStore interface {
	SetAuthHeader(token string) error
	ClearAuthHeader() error
}

// Failure is a login or logout failure with a message fit for display.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	return f.Reason
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Manager is the only writer of the auth token.
type Manager struct {
	api   Authenticator
	store TokenStore
	log   zerolog.Logger

	mu sync.Mutex
}

// NewManager returns a session manager.
func NewManager(a Authenticator, store TokenStore, log zerolog.Logger) *Manager {
	return &Manager{api: a, store: store, log: log}
}

// Login signs in and stores the returned token.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp, err := m.api.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		f := failure("Login failed", err)
		m.log.Warn().Err(err).Str("email", email).Msg("login failed")
		return f
	}

	token := resp.Token()
	if token == "" {
		m.log.Warn().Str("email", email).Msg("login response without token")
		return &Failure{Reason: "Failed to retrieve authentication token", Err: ErrMissingToken}
	}
	if err := m.store.SetAuthHeader(token); err != nil {
		return &Failure{Reason: "Failed to save authentication token", Err: err}
	}

	m.log.Info().Str("email", email).Str("server_message", resp.Message()).Msg("logged in")
	return nil
}

// Logout signs out. The stored token is cleared only when the server accepted the logout.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.api.Logout(ctx); err != nil {
		m.log.Warn().Err(err).Msg("logout failed")
		return failure("Logout failed", err)
	}
	if err := m.store.ClearAuthHeader(); err != nil {
		return &Failure{Reason: "Failed to clear authentication token", Err: err}
	}

	m.log.Info().Msg("logged out")
	return nil
}

func failure(prefix string, err error) *Failure {
	if httpErr, ok := api.IsHTTP(err); ok {
		return &Failure{Reason: prefix + ": " + httpErr.Status, Err: err}
	}
	if api.IsTransport(err) {
		return &Failure{Reason: err.Error(), Err: err}
	}
	return &Failure{Reason: prefix + ": " + err.Error(), Err: err}
}
