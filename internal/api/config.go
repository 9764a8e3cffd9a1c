package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production backend.
const DefaultBaseURL = "https://testcloud-backend.azurewebsites.net/"

// DefaultTimeout applies to connect, read and write when a Config leaves them unset.
const DefaultTimeout = 60 * time.Second

// TokenSource supplies the current auth token. ok is false when no token is stored.
type TokenSource interface {
	AuthHeader() (token string, ok bool, err error)
}

// Config describes how the HTTP client is built.
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// RetryOnConnectionFailure retries a request up to MaxRetries times when
	// the connection could not be established or was reset before a response.
	RetryOnConnectionFailure bool
	MaxRetries               int

	Tokens TokenSource
	Logger *zerolog.Logger

	// Transport replaces the network transport. Tests use it to route
	// requests to an in-process server.
	Transport http.RoundTripper
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:                  DefaultBaseURL,
		ConnectTimeout:           DefaultTimeout,
		ReadTimeout:              DefaultTimeout,
		WriteTimeout:             DefaultTimeout,
		RetryOnConnectionFailure: true,
		MaxRetries:               1,
	}
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultTimeout
	}
	if c.RetryOnConnectionFailure && c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}
