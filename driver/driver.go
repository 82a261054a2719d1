/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package driver is the top-level facade: it turns a URI scheme, an auth
// manager and a config.Config into either a direct or a routed connection
// pool and hands out session.Session values bound to the right one. It
// never parses a full URL/DSN or builds a *tls.Config itself -- those stay
// the caller's concern, injected via WithDialFunc.
package driver

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sabouaram/graphbolt/auth"
	"github.com/sabouaram/graphbolt/bolt"
	"github.com/sabouaram/graphbolt/config"
	liberr "github.com/sabouaram/graphbolt/errors"
	"github.com/sabouaram/graphbolt/logger"
	"github.com/sabouaram/graphbolt/packstream"
	"github.com/sabouaram/graphbolt/pool"
	"github.com/sabouaram/graphbolt/resolver"
	"github.com/sabouaram/graphbolt/session"
)

// DialFunc dials addr and returns a ready net.Conn -- plain TCP for bolt/
// neo4j, TLS-wrapped for the +s/+ssc schemes. Supplying one is how a caller
// satisfies the encrypted schemes without this package ever touching
// *tls.Config.
type DialFunc func(ctx context.Context, addr bolt.Address) (net.Conn, error)

type options struct {
	dial        DialFunc
	resolver    resolver.Resolver
	log         logger.Logger
	userAgent   string
	seedRouters []bolt.UnresolvedAddress
}

// Option customizes New's collaborators beyond config.Config.
type Option func(*options)

func WithDialFunc(f DialFunc) Option { return func(o *options) { o.dial = f } }

func WithResolver(r resolver.Resolver) Option { return func(o *options) { o.resolver = r } }

func WithLogger(l logger.Logger) Option { return func(o *options) { o.log = l } }

// WithSeedRouters adds extra router addresses a routed driver tries
// alongside the URI's own target, e.g. a known secondary core member.
func WithSeedRouters(addrs ...bolt.UnresolvedAddress) Option {
	return func(o *options) { o.seedRouters = append(o.seedRouters, addrs...) }
}

// Driver owns one connection pool (direct or routed) for the lifetime of
// the application and hands out sessions against it. Safe for concurrent
// use; a Session obtained from it is not.
type Driver struct {
	id     uuid.UUID
	scheme Scheme
	target bolt.UnresolvedAddress
	cfg    config.Config
	log    logger.Logger

	pool       *pool.Pool
	routedPool *pool.RoutedPool

	closed atomic.Bool
}

// New resolves scheme from uri (see ParseScheme), builds the matching pool
// and returns a Driver ready to mint sessions. authManager supplies
// credentials for every HELLO/LOGON this driver's pool performs.
func New(ctx context.Context, uri string, authManager auth.Manager, cfg config.Config, opts ...Option) (*Driver, liberr.Error) {
	scheme, target, err := ParseScheme(uri)
	if err != nil {
		return nil, err
	}

	o := &options{userAgent: cfg.Pool.UserAgent}
	for _, opt := range opts {
		opt(o)
	}
	if o.userAgent == "" {
		o.userAgent = "graphbolt/1.0"
	}
	if o.log == nil {
		o.log = logger.New(ctx)
	}
	if scheme.encrypted() && o.dial == nil {
		return nil, ErrorCertificateProviderRequired.Error()
	}

	open := buildOpener(authManager, o)

	d := &Driver{
		id:     uuid.New(),
		scheme: scheme,
		target: target,
		cfg:    cfg,
		log:    o.log,
	}

	if scheme.routed() {
		routers := append([]bolt.UnresolvedAddress{target}, o.seedRouters...)
		d.routedPool = pool.NewRoutedPool(ctx, cfg.Pool, cfg.Routing, routers, o.resolver, open, o.log)
	} else {
		d.pool = pool.New(cfg.Pool, o.resolver, open, o.log)
	}

	return d, nil
}

// buildOpener returns the pool.Opener every bucket uses to dial and fully
// initialize a fresh connection: transport dial, handshake, HELLO/LOGON.
func buildOpener(authManager auth.Manager, o *options) pool.Opener {
	return func(ctx context.Context, addr bolt.Address) (*bolt.Connection, liberr.Error) {
		raw, derr := dial(ctx, addr, o.dial)
		if derr != nil {
			return nil, bolt.ErrorTransport.Error(derr)
		}

		conn, cerr := bolt.NewConnection(ctx, raw, addr, o.log)
		if cerr != nil {
			return nil, cerr
		}

		token, aerr := authManager.GetAuth(ctx)
		if aerr != nil {
			conn.Close()
			return nil, ErrorInvalidURI.Error(aerr)
		}

		extra := packstream.Map{"user_agent": packstream.String(o.userAgent)}
		if herr := conn.HelloAndLogon(extra, token.ToMap()); herr != nil {
			authManager.OnAuthExpired(herr)
			conn.Close()
			return nil, herr
		}
		return conn, nil
	}
}

func dial(ctx context.Context, addr bolt.Address, custom DialFunc) (net.Conn, error) {
	if custom != nil {
		return custom(ctx, addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr.DialTarget())
}

// NewSession mints a session.Session bound to this driver's pool. cfg's
// Retry/Logger/FetchSize/Database fields default to the driver's own config
// and logger when left zero; BookmarkManager is passed through unchanged.
func (d *Driver) NewSession(cfg session.Config) *session.Session {
	if cfg.Retry.MaxTransactionRetryTime == 0 {
		cfg.Retry = d.cfg.Retry
	}
	if cfg.Logger == nil {
		cfg.Logger = d.log
	}
	if cfg.FetchSize == 0 {
		cfg.FetchSize = d.cfg.Session.FetchSize
	}
	if cfg.Database == "" {
		cfg.Database = d.cfg.Session.Database
	}

	return session.New(d.acquirer(), cfg)
}

func (d *Driver) acquirer() session.Acquirer {
	if d.routedPool != nil {
		return &routedAcquirer{pool: d.routedPool}
	}
	return &directAcquirer{pool: d.pool, target: d.target}
}

// VerifyConnectivity acquires and immediately releases one connection,
// surfacing a dial/handshake/auth failure without the caller needing to
// run a query first.
func (d *Driver) VerifyConnectivity(ctx context.Context) liberr.Error {
	if d.closed.Load() {
		return ErrorDriverClosed.Error()
	}

	var (
		conn *bolt.Connection
		err  liberr.Error
	)
	if d.routedPool != nil {
		conn, err = d.routedPool.AcquireReader(ctx, "")
	} else {
		conn, err = d.pool.Acquire(ctx, d.target)
	}
	if err != nil {
		return err
	}

	if d.routedPool != nil {
		d.routedPool.Release(conn)
	} else {
		d.pool.Release(conn)
	}
	return nil
}

// IsEncrypted reports whether this driver's scheme mandates TLS.
func (d *Driver) IsEncrypted() bool { return d.scheme.encrypted() }

// ID identifies this driver instance, used to correlate its log entries
// across the pool(s) it owns.
func (d *Driver) ID() uuid.UUID { return d.id }

// Close shuts down the underlying pool, refusing further use. Idempotent.
func (d *Driver) Close() liberr.Error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if d.routedPool != nil {
		d.routedPool.Close()
	} else {
		d.pool.Close()
	}
	return nil
}
