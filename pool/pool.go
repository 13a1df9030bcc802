// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Default pool settings.
const (
	DefaultMaxConnsPerHost     = 1000
	DefaultMaxIdleConnsPerHost = 256
	DefaultIdleConnTimeout     = 30 * time.Second
	DefaultDialTimeout         = 5 * time.Second
	DefaultKeepAlive           = 30 * time.Second
)

var (
	// DefaultPlain is the pool used for http requests when no other
	// pool is configured.
	DefaultPlain = New()

	// DefaultTLS is the pool used for https requests when no other
	// pool is configured.
	DefaultTLS = New()

	// NoReuse is a pool that never keeps connections alive. Setting
	// request.Options.Agent to NoReuse sends a request on a fresh
	// connection that is closed once the response ends.
	NoReuse = New(WithoutReuse())
)

// An Option configures a Pool.
type Option func(c *config)

type config struct {
	maxConnsPerHost     int
	maxIdleConnsPerHost int
	idleConnTimeout     time.Duration
	dialTimeout         time.Duration
	tlsConfig           *tls.Config
	noReuse             bool
	logger              *slog.Logger
}

// WithMaxConnsPerHost limits the total number of connections per host,
// counting connections in use and idle ones. Zero means no limit.
func WithMaxConnsPerHost(n int) Option {
	return func(c *config) {
		c.maxConnsPerHost = n
	}
}

// WithMaxIdleConnsPerHost limits the number of idle connections kept
// per host.
func WithMaxIdleConnsPerHost(n int) Option {
	return func(c *config) {
		c.maxIdleConnsPerHost = n
	}
}

// WithIdleConnTimeout sets how long an idle connection is kept before
// it is closed.
func WithIdleConnTimeout(d time.Duration) Option {
	return func(c *config) {
		c.idleConnTimeout = d
	}
}

// WithDialTimeout bounds the time to establish a connection, including
// the TLS handshake for https.
func WithDialTimeout(d time.Duration) Option {
	return func(c *config) {
		c.dialTimeout = d
	}
}

// WithTLSConfig sets the TLS configuration used for https connections,
// for example to present a client certificate or trust a private CA.
// The configuration is cloned.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) {
		c.tlsConfig = cfg.Clone()
	}
}

// WithoutReuse disables keep-alive: every request dials a new
// connection.
func WithoutReuse() Option {
	return func(c *config) {
		c.noReuse = true
	}
}

// WithLogger sets the logger for connection lifecycle messages, which
// are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Stats reports connection counts for a Pool.
type Stats struct {
	// Dialed is the number of connections dialed since the pool was
	// created.
	Dialed int64
	// Closed is the number of dialed connections since closed.
	Closed int64
	// Failed is the number of dial attempts that failed.
	Failed int64
}

// Open returns the number of connections currently open.
func (s Stats) Open() int64 {
	return s.Dialed - s.Closed
}

// A Pool is a connection pool that sends requests over tracked
// connections. The zero value is not usable; use New.
//
// A Pool is safe for concurrent use by multiple goroutines.
type Pool struct {
	cfg       config
	transport *http.Transport
	client    *http.Client
	logger    *slog.Logger

	dialed atomic.Int64
	closes atomic.Int64
	failed atomic.Int64

	insecureOnce sync.Once
	insecure     atomic.Pointer[Pool]
}

// New returns a new pool configured by opts.
func New(opts ...Option) *Pool {
	cfg := config{
		maxConnsPerHost:     DefaultMaxConnsPerHost,
		maxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		idleConnTimeout:     DefaultIdleConnTimeout,
		dialTimeout:         DefaultDialTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return newPool(cfg)
}

func newPool(cfg config) *Pool {
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Pool{
		cfg:    cfg,
		logger: logger,
	}
	p.transport = &http.Transport{
		DialContext:         p.dial,
		DialTLSContext:      p.dialTLS,
		MaxConnsPerHost:     cfg.maxConnsPerHost,
		MaxIdleConnsPerHost: cfg.maxIdleConnsPerHost,
		IdleConnTimeout:     cfg.idleConnTimeout,
		DisableKeepAlives:   cfg.noReuse,
		DisableCompression:  true,
	}
	p.client = &http.Client{
		Transport: p.transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return p
}

// Do sends an HTTP request and returns the HTTP response. Redirects are
// not followed.
func (p *Pool) Do(r *http.Request) (*http.Response, error) {
	return p.client.Do(r)
}

// Reuses reports whether the pool keeps connections alive between
// requests.
func (p *Pool) Reuses() bool {
	return !p.cfg.noReuse
}

// Insecure returns a pool with the same settings as p except that it
// does not verify server certificates. The same insecure pool is
// returned on every call.
func (p *Pool) Insecure() *Pool {
	if p.cfg.tlsConfig != nil && p.cfg.tlsConfig.InsecureSkipVerify {
		return p
	}
	p.insecureOnce.Do(func() {
		cfg := p.cfg
		if cfg.tlsConfig != nil {
			cfg.tlsConfig = cfg.tlsConfig.Clone()
		} else {
			cfg.tlsConfig = &tls.Config{}
		}
		cfg.tlsConfig.InsecureSkipVerify = true
		p.insecure.Store(newPool(cfg))
	})
	return p.insecure.Load()
}

// CloseIdleConnections closes any idle connections in the pool and in
// its insecure view, if one was created.
func (p *Pool) CloseIdleConnections() {
	p.transport.CloseIdleConnections()
	if ip := p.insecure.Load(); ip != nil {
		ip.CloseIdleConnections()
	}
}

// Stats returns the pool's connection counts.
func (p *Pool) Stats() Stats {
	return Stats{
		Dialed: p.dialed.Load(),
		Closed: p.closes.Load(),
		Failed: p.failed.Load(),
	}
}

func (p *Pool) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	raw, err := p.dialRaw(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return p.track(raw), nil
}

func (p *Pool) dialTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	raw, err := p.dialRaw(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	cfg := p.tlsConfigFor(addr)
	tc := tls.Client(raw, cfg)
	hsCtx := ctx
	if p.cfg.dialTimeout > 0 {
		var cancel context.CancelFunc
		hsCtx, cancel = context.WithTimeout(ctx, p.cfg.dialTimeout)
		defer cancel()
	}
	if err = tc.HandshakeContext(hsCtx); err != nil {
		_ = raw.Close()
		p.failed.Add(1)
		p.logger.Debug("tls handshake failed", "addr", addr, "err", err)
		return nil, err
	}
	return p.track(tc), nil
}

func (p *Pool) dialRaw(ctx context.Context, network, addr string) (net.Conn, error) {
	d := net.Dialer{
		Timeout:   p.cfg.dialTimeout,
		KeepAlive: DefaultKeepAlive,
	}
	raw, err := d.DialContext(ctx, network, addr)
	if err != nil {
		p.failed.Add(1)
		p.logger.Debug("dial failed", "addr", addr, "err", err)
		return nil, err
	}
	return raw, nil
}

func (p *Pool) tlsConfigFor(addr string) *tls.Config {
	var cfg *tls.Config
	if p.cfg.tlsConfig != nil {
		cfg = p.cfg.tlsConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		cfg.ServerName = host
	}
	cfg.NextProtos = []string{"http/1.1"}
	return cfg
}

func (p *Pool) track(nc net.Conn) *Conn {
	p.dialed.Add(1)
	p.logger.Debug("connection opened", "local", nc.LocalAddr().String(), "remote", nc.RemoteAddr().String())
	return &Conn{Conn: nc, pool: p}
}

func (p *Pool) closed(c *Conn) {
	p.closes.Add(1)
	p.logger.Debug("connection closed", "local", c.LocalAddr().String(), "remote", c.RemoteAddr().String())
}
