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

// Package pool holds one connection bucket per resolved address behind a
// single mutex and condition variable, the same lock+condvar shape the
// mail sender's per-recipient rate counter uses to gate concurrent access
// to a shared, bounded resource.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/sabouaram/graphbolt/bolt"
	"github.com/sabouaram/graphbolt/config"
	liberr "github.com/sabouaram/graphbolt/errors"
	"github.com/sabouaram/graphbolt/logger"
	logfld "github.com/sabouaram/graphbolt/logger/fields"
	"github.com/sabouaram/graphbolt/resolver"
)

// Opener dials and fully initializes (handshake + HELLO/LOGON) a new
// connection to addr. Supplied by the driver facade so this package stays
// ignorant of auth and TLS.
type Opener func(ctx context.Context, addr bolt.Address) (*bolt.Connection, liberr.Error)

type bucket struct {
	address   bolt.Address
	idle      []*bolt.Connection
	reserved  int // slots counted against cfg.MaxConnectionPoolSize but not yet in idle (dialing or in-use)
}

func (b *bucket) size() int { return len(b.idle) + b.reserved }

// Pool hands out bolt.Connection values scoped to one resolved address at a
// time, bounding each address's concurrent connections and blocking callers
// past the limit until one is released or the wait times out.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buckets map[string]*bucket
	closed  bool

	cfg  config.Pool
	res  resolver.Resolver
	open Opener
	log  logger.Logger
}

func New(cfg config.Pool, res resolver.Resolver, open Opener, log logger.Logger) *Pool {
	if res == nil {
		res = resolver.Identity()
	}
	p := &Pool{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		res:     res,
		open:    open,
		log:     log,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Acquire resolves unresolved into a concrete address, then returns an idle
// connection for it or dials a new one, blocking while the bucket is already
// at MaxConnectionPoolSize until a slot frees up or
// ConnectionAcquisitionTimeout (or ctx) expires.
func (p *Pool) Acquire(ctx context.Context, unresolved bolt.UnresolvedAddress) (*bolt.Connection, liberr.Error) {
	candidates, rerr := p.res.Resolve(ctx, unresolved)
	if rerr != nil || len(candidates) == 0 {
		return nil, ErrorDial.Error(rerr)
	}
	addr := candidates[0]
	return p.AcquireAddress(ctx, addr)
}

// AcquireAddress is Acquire for a caller that already holds a resolved
// bolt.Address (the routed pool, picking from a routing table entry).
func (p *Pool) AcquireAddress(ctx context.Context, addr bolt.Address) (*bolt.Connection, liberr.Error) {
	deadline := time.Now().Add(p.cfg.ConnectionAcquisitionTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-time.After(time.Until(deadline)):
			p.cond.Broadcast()
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-stop:
		}
	}()

	p.mu.Lock()
	key := addr.Key()

	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrorPoolClosed.Error()
		}

		b, ok := p.buckets[key]
		if !ok {
			b = &bucket{address: addr}
			p.buckets[key] = b
		}

		if conn, found := p.takeIdleLocked(b); found {
			p.mu.Unlock()
			if err := p.checkLiveness(ctx, conn); err != nil {
				p.mu.Lock()
				b.reserved--
				p.mu.Unlock()
				p.cond.Broadcast()
				conn.Close()
				return nil, err
			}
			conn.MarkInUse()
			return conn, nil
		}

		if b.size() < p.cfg.MaxConnectionPoolSize {
			b.reserved++
			p.mu.Unlock()

			conn, err := p.dial(ctx, addr)
			p.mu.Lock()
			if err != nil {
				b.reserved--
				p.mu.Unlock()
				p.cond.Broadcast()
				return nil, err
			}
			// b.reserved stays incremented: it now accounts for conn, which
			// the caller holds in use until Release.
			p.mu.Unlock()
			conn.MarkInUse()
			return conn, nil
		}

		if time.Now().After(deadline) {
			p.mu.Unlock()
			if ctx.Err() != nil {
				return nil, ErrorAcquisitionCanceled.Error(ctx.Err())
			}
			return nil, ErrorAcquisitionTimeout.Error()
		}

		p.cond.Wait()
	}
}

// takeIdleLocked pops the first usable idle connection from b, discarding
// (and closing) any that outlived MaxConnectionLifetime or were marked
// defunct/stale while idle. Caller holds p.mu.
func (p *Pool) takeIdleLocked(b *bucket) (*bolt.Connection, bool) {
	for len(b.idle) > 0 {
		conn := b.idle[len(b.idle)-1]
		b.idle = b.idle[:len(b.idle)-1]

		if conn.IsDefunct() || conn.IsStale() || p.expired(conn) {
			conn.Close()
			continue
		}

		b.reserved++
		return conn, true
	}
	return nil, false
}

func (p *Pool) expired(conn *bolt.Connection) bool {
	if p.cfg.MaxConnectionLifetime <= 0 {
		return false
	}
	return time.Since(conn.CreatedAt()) > p.cfg.MaxConnectionLifetime
}

func (p *Pool) dial(ctx context.Context, addr bolt.Address) (*bolt.Connection, liberr.Error) {
	dialCtx := ctx
	if p.cfg.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, p.cfg.ConnectionTimeout)
		defer cancel()
	}

	conn, err := p.open(dialCtx, addr)
	if err != nil {
		if p.log != nil {
			p.log.Error("pool: dial failed", err, logfld.New(ctx).Add("address", addr.Key()))
		}
		return nil, ErrorDial.Error(err)
	}
	return conn, nil
}

// checkLiveness runs a RESET round-trip on conn if it has been idle longer
// than LivenessCheckTimeout, per the pool's policy of not handing out a
// connection the peer may have already dropped.
func (p *Pool) checkLiveness(ctx context.Context, conn *bolt.Connection) liberr.Error {
	if p.cfg.LivenessCheckTimeout <= 0 {
		return nil
	}
	if time.Since(conn.IdleSince()) < p.cfg.LivenessCheckTimeout {
		return nil
	}
	if err := conn.ResetSync(); err != nil {
		return err
	}
	return nil
}

// Release returns conn to its bucket's idle set, or discards it (freeing its
// reserved slot) if it is defunct or stale. Waiters blocked in Acquire are
// woken either way. The RESET round-trip for a non-clean connection runs
// without holding the pool's lock, so it cannot stall unrelated acquires.
func (p *Pool) Release(conn *bolt.Connection) {
	conn.MarkIdle()

	discard := conn.IsDefunct() || conn.IsStale() || p.expired(conn)
	if !discard && !conn.IsClean() {
		if err := conn.ResetSync(); err != nil {
			discard = true
		}
	}

	p.mu.Lock()
	defer func() {
		p.mu.Unlock()
		p.cond.Broadcast()
	}()

	key := conn.Address().Key()
	b, ok := p.buckets[key]
	if !ok {
		conn.Close()
		return
	}

	b.reserved--

	if p.closed || discard {
		conn.Close()
	} else {
		b.idle = append(b.idle, conn)
	}
}

// Deactivate marks every connection for addr unusable and drains its idle
// set, used after a routing failure tells the driver an address is down.
func (p *Pool) Deactivate(addr bolt.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[addr.Key()]
	if !ok {
		return
	}
	for _, conn := range b.idle {
		conn.Close()
	}
	b.idle = nil
	delete(p.buckets, addr.Key())
	p.cond.Broadcast()
}

// MarkStaleAddress flags every idle connection to addr stale, so takeIdleLocked
// discards them on the next Acquire instead of handing out credentials the
// server just revoked (FAILURE code Neo.ClientError.Security.AuthorizationExpired).
// A connection currently checked out to a caller is unaffected here; the
// session that saw the FAILURE marks that one connection stale directly via
// conn.MarkStale(), and Release's own IsStale() check discards it there.
func (p *Pool) MarkStaleAddress(addr bolt.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[addr.Key()]
	if !ok {
		return
	}
	for _, conn := range b.idle {
		conn.MarkStale()
	}
}

// Close closes every idle connection across every bucket and rejects any
// further Acquire call. In-flight connections already handed out are closed
// by their owner's Release.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for _, b := range p.buckets {
		for _, conn := range b.idle {
			conn.Close()
		}
		b.idle = nil
	}
	p.cond.Broadcast()
}

// InUseCount reports how many connections to addr are currently reserved
// (dialing or handed out), used by the routed pool's least-in-use address
// selection.
func (p *Pool) InUseCount(addr bolt.Address) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[addr.Key()]
	if !ok {
		return 0
	}
	return b.reserved
}
