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

package bolt

import (
	liberr "github.com/sabouaram/graphbolt/errors"
	"github.com/sabouaram/graphbolt/packstream"
)

// roundTrip enqueues a single message, flushes it and dispatches until its
// terminal reply arrives, returning the SUCCESS metadata or a server error.
func (c *Connection) roundTrip(kind MessageKind, msg *packstream.Structure) (packstream.Map, liberr.Error) {
	var (
		meta    packstream.Map
		failure liberr.Error
	)

	h := &ResponseHandler{
		OnSuccess: func(m packstream.Map) { meta = m },
		OnFailure: func(code, message string) {
			failure = ErrorServerFailure.Error(&ServerError{Code: code, Message: message})
		},
	}

	if err := c.Enqueue(kind, msg, h); err != nil {
		return nil, err
	}
	if err := c.Flush(); err != nil {
		return nil, wrapCommitFailure(kind, err)
	}

	for {
		before := len(c.pending)
		if err := c.Dispatch(); err != nil && failure == nil {
			return nil, wrapCommitFailure(kind, err)
		}
		if len(c.pending) < before {
			break
		}
	}

	if failure != nil {
		return meta, failure
	}
	return meta, nil
}

// wrapCommitFailure translates a transport/protocol failure suffered while a
// COMMIT is in flight into ErrorIncompleteCommit: the caller sent the commit
// but never learned whether the server applied it, so it must not assume a
// rollback. A FAILURE response is a definite answer and passes through
// unchanged.
func wrapCommitFailure(kind MessageKind, err liberr.Error) liberr.Error {
	if kind != MsgCommit || err.GetCode() == ErrorServerFailure {
		return err
	}
	return ErrorIncompleteCommit.Error(err)
}

// HelloAndLogon performs the HELLO handshake (and the v5.1+ separate LOGON) in one
// blocking call, leaving the connection in StateReady on success.
func (c *Connection) HelloAndLogon(extra, auth packstream.Map) liberr.Error {
	if _, err := c.roundTrip(MsgHello, Hello(extra)); err != nil {
		return err
	}

	if c.AuthenticatesViaLogon() {
		if _, err := c.roundTrip(MsgLogon, Logon(auth)); err != nil {
			return err
		}
	}

	return nil
}

// ResetSync drives a blocking RESET round-trip, used by the pool's liveness
// check and by release-time cleanup of a non-reset connection.
func (c *Connection) ResetSync() liberr.Error {
	_, err := c.roundTrip(MsgReset, Reset())
	return err
}

// LogoffSync drives a blocking LOGOFF round-trip.
func (c *Connection) LogoffSync() liberr.Error {
	_, err := c.roundTrip(MsgLogoff, Logoff())
	return err
}

// RouteSync drives a blocking ROUTE round-trip on v>=4.3 connections,
// returning the raw {servers, ttl, db?} metadata for routing.ParseInfo.
func (c *Connection) RouteSync(routingCtx packstream.Map, bookmarks packstream.List, dbCtx packstream.Map) (packstream.Map, liberr.Error) {
	return c.roundTrip(MsgRoute, Route(routingCtx, bookmarks, dbCtx))
}

// BeginSync opens an explicit transaction, leaving the connection in
// StateTxReadyOrStreaming on success.
func (c *Connection) BeginSync(extra packstream.Map) liberr.Error {
	_, err := c.roundTrip(MsgBegin, Begin(extra))
	return err
}

// CommitSync commits the open explicit transaction and returns the
// commit metadata (carries the new bookmark under "bookmark").
func (c *Connection) CommitSync() (packstream.Map, liberr.Error) {
	return c.roundTrip(MsgCommit, Commit())
}

// RollbackSync rolls back the open explicit transaction.
func (c *Connection) RollbackSync() liberr.Error {
	_, err := c.roundTrip(MsgRollback, Rollback())
	return err
}
