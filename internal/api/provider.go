package api

import (
	"errors"
	"sync"
)

// ErrProviderClosed is returned by Instance after Close when no client was ever built.
var ErrProviderClosed = errors.New("api provider closed")

// Provider owns the single API client of an application. The client is built
// on first use and every later call, from any goroutine, returns the same one.
type Provider struct {
	cfg   Config
	build func(Config) (*Client, error)

	once   sync.Once
	client *Client
	err    error
}

// NewProvider returns a provider that will build its client from cfg.
func NewProvider(cfg Config) *Provider {
	return &Provider{cfg: cfg, build: NewClient}
}

// Instance returns the shared client, constructing it at most once.
func (p *Provider) Instance() (*Client, error) {
	p.once.Do(func() {
		p.client, p.err = p.build(p.cfg)
	})
	return p.client, p.err
}

// Close releases the client's pooled connections if it was ever built.
func (p *Provider) Close() {
	p.once.Do(func() { p.err = ErrProviderClosed })
	if p.client != nil {
		p.client.CloseIdleConnections()
	}
}
