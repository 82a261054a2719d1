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

package driver

import (
	"context"

	"github.com/sabouaram/graphbolt/bolt"
	liberr "github.com/sabouaram/graphbolt/errors"
	"github.com/sabouaram/graphbolt/pool"
)

// directAcquirer adapts a plain *pool.Pool bound to a single target address
// to session.Acquirer. Access mode is irrelevant without a routing table,
// so both reads and writes go to the same address.
type directAcquirer struct {
	pool   *pool.Pool
	target bolt.UnresolvedAddress
}

func (a *directAcquirer) Acquire(ctx context.Context, _ bolt.AccessMode, _ string) (*bolt.Connection, liberr.Error) {
	return a.pool.Acquire(ctx, a.target)
}

func (a *directAcquirer) Release(conn *bolt.Connection) { a.pool.Release(conn) }

// DefaultDatabase has no routing table to ask, so it reports the empty
// string, which the session/bolt wire layer treats as the server's own
// default database for the authenticated user.
func (a *directAcquirer) DefaultDatabase(context.Context) (string, liberr.Error) { return "", nil }

// RemoveWriter is a no-op: a direct acquirer has no routing table to evict a
// writer from.
func (a *directAcquirer) RemoveWriter(bolt.Address) {}

func (a *directAcquirer) MarkStale(addr bolt.Address) { a.pool.MarkStaleAddress(addr) }

func (a *directAcquirer) Deactivate(addr bolt.Address) { a.pool.Deactivate(addr) }

// routedAcquirer adapts a *pool.RoutedPool to session.Acquirer, picking a
// reader or writer address from the database's routing table per mode.
type routedAcquirer struct {
	pool *pool.RoutedPool
}

func (a *routedAcquirer) Acquire(ctx context.Context, mode bolt.AccessMode, database string) (*bolt.Connection, liberr.Error) {
	if mode == bolt.AccessRead {
		return a.pool.AcquireReader(ctx, database)
	}
	return a.pool.AcquireWriter(ctx, database)
}

func (a *routedAcquirer) Release(conn *bolt.Connection) { a.pool.Release(conn) }

func (a *routedAcquirer) DefaultDatabase(ctx context.Context) (string, liberr.Error) {
	return a.pool.HomeDatabase(ctx)
}

func (a *routedAcquirer) RemoveWriter(addr bolt.Address) { a.pool.RemoveWriter(addr) }

func (a *routedAcquirer) MarkStale(addr bolt.Address) { a.pool.MarkStaleAddress(addr) }

func (a *routedAcquirer) Deactivate(addr bolt.Address) { a.pool.DeactivateEverywhere(addr) }
