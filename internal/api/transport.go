package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// newTransport builds the network transport with connect, read and write timeouts.
// There is no overall request deadline so long downloads only fail when the peer stalls.
func newTransport(cfg Config) *http.Transport {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &timeoutConn{Conn: conn, read: cfg.ReadTimeout, write: cfg.WriteTimeout}, nil
		},
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		ForceAttemptHTTP2:     true,
	}
}

// timeoutConn refreshes the deadline before every read and write.
type timeoutConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *timeoutConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *timeoutConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// authTransport attaches the stored token to every request except registration.
type authTransport struct {
	next         http.RoundTripper
	tokens       TokenSource
	registerPath string
	log          *zerolog.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil || req.URL.Path == t.registerPath {
		return t.next.RoundTrip(req)
	}

	token, ok, err := t.tokens.AuthHeader()
	if err != nil {
		t.log.Warn().Err(err).Msg("failed to read auth token")
		return t.next.RoundTrip(req)
	}
	if !ok {
		return t.next.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", token)
	return t.next.RoundTrip(r)
}

// retryTransport retries requests that failed before reaching the server.
type retryTransport struct {
	next       http.RoundTripper
	maxRetries int
	log        *zerolog.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.maxRetries; attempt++ {
		if !isConnectionFailure(err) || req.Context().Err() != nil {
			return nil, err
		}
		r := req
		if req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return nil, err
			}
			body, berr := req.GetBody()
			if berr != nil {
				return nil, err
			}
			r = req.Clone(req.Context())
			r.Body = body
		}
		t.log.Debug().Err(err).Int("attempt", attempt).Str("path", req.URL.Path).Msg("retrying after connection failure")
		resp, err = t.next.RoundTrip(r)
	}
	return resp, err
}

func isConnectionFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

// loggingTransport records one log line per exchange.
type loggingTransport struct {
	next http.RoundTripper
	log  *zerolog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	id := uuid.NewString()

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.log.Warn().
			Err(err).
			Str("request_id", id).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request failed")
		return nil, err
	}

	t.log.Debug().
		Str("request_id", id).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")
	return resp, nil
}

// newHTTPClient assembles the interceptor chain over the network transport.
func newHTTPClient(cfg Config, registerPath string) *http.Client {
	base := cfg.Transport
	if base == nil {
		base = newTransport(cfg)
	}
	var rt http.RoundTripper = base
	if cfg.RetryOnConnectionFailure {
		rt = &retryTransport{next: rt, maxRetries: cfg.MaxRetries, log: cfg.Logger}
	}
	rt = &authTransport{next: rt, tokens: cfg.Tokens, registerPath: registerPath, log: cfg.Logger}
	rt = &loggingTransport{next: rt, log: cfg.Logger}
	return &http.Client{Transport: rt}
}
