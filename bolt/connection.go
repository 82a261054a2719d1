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

// Package bolt implements the wire connection: handshake, chunked/packstream
// message exchange, the protocol state machine and its failure policy. It
// takes no dependency on a pool or a session -- both are built on top.
package bolt

import (
	"bytes"
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/sabouaram/graphbolt/errors"
	logfld "github.com/sabouaram/graphbolt/logger/fields"
	"github.com/sabouaram/graphbolt/logger"
	"github.com/sabouaram/graphbolt/chunk"
	"github.com/sabouaram/graphbolt/packstream"
)

// ResponseHandler receives the callbacks for one queued request. OnRecord
// may fire any number of times before the terminal OnSuccess/OnFailure/
// OnIgnored call that retires the request.
type ResponseHandler struct {
	OnRecord  func(fields packstream.List)
	OnSuccess func(meta packstream.Map)
	OnFailure func(code, message string)
	OnIgnored func()
}

type pendingEntry struct {
	kind      MessageKind
	handler   *ResponseHandler
	fatal     bool
	nextState State
}

// Connection is one bolt TCP/TLS session, pipelined, owned exclusively by
// whichever session currently holds it (see the pool package for lifecycle).
type Connection struct {
	address Address
	version Version
	conn    net.Conn
	log     logger.Logger

	writeBuf bytes.Buffer
	pending  []pendingEntry

	mu    sync.Mutex
	state State

	inUse   atomic.Bool
	stale   atomic.Bool
	defunct atomic.Bool
	closed  atomic.Bool
	isReset atomic.Bool

	createdAt  time.Time
	idleSince  time.Time
	serverInfo string

	telemetryEnabled bool
}

// Dial opens the TCP connection, exchanges the handshake and returns a
// Connection left in StateConnected, ready for HELLO. The caller applies
// connTimeout via ctx. TLS, being an external concern, is established by
// the caller beforehand: wrap the *tls.Conn and use NewConnection instead.
func Dial(ctx context.Context, addr Address, log logger.Logger) (*Connection, liberr.Error) {
	var d net.Dialer
	raw, e := d.DialContext(ctx, "tcp", addr.DialTarget())
	if e != nil {
		return nil, ErrorTransport.Error(e)
	}

	return NewConnection(ctx, raw, addr, log)
}

// NewConnection wraps an already-established net.Conn (plain TCP or TLS)
// and runs the handshake over it, returning a Connection in StateConnected.
func NewConnection(ctx context.Context, raw net.Conn, addr Address, log logger.Logger) (*Connection, liberr.Error) {
	if log == nil {
		log = logger.New(ctx)
	}

	c := &Connection{
		address:   addr,
		conn:      raw,
		log:       log,
		state:     StateConnected,
		createdAt: time.Now(),
		idleSince: time.Now(),
	}
	c.isReset.Store(false)

	if err := c.handshake(); err != nil {
		_ = raw.Close()
		c.defunct.Store(true)
		return nil, err
	}

	c.log.Debug("bolt handshake complete", logfld.New(ctx).Add("address", addr.Key()).Add("version", c.version.String()))
	return c, nil
}

func (c *Connection) handshake() liberr.Error {
	offer := Handshake()
	if _, e := c.conn.Write(offer); e != nil {
		return ErrorTransport.Error(e)
	}

	var resp [4]byte
	n := 0
	for n < 4 {
		k, e := c.conn.Read(resp[n:])
		if e != nil {
			return ErrorTransport.Error(e)
		}
		n += k
	}

	v, ok := ParseAgreedVersion(resp)
	if !ok {
		return ErrorHandshakeRefused.Error()
	}
	c.version = v
	c.telemetryEnabled = v.Major > 5 || (v.Major == 5 && v.Minor >= 4)
	return nil
}

func (c *Connection) Version() Version   { return c.version }
func (c *Connection) Address() Address   { return c.address }
func (c *Connection) State() State       { return c.stateLocked() }
func (c *Connection) CreatedAt() time.Time { return c.createdAt }
func (c *Connection) IdleSince() time.Time { return c.idleSince }

func (c *Connection) stateLocked() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) IsInUse() bool   { return c.inUse.Load() }
func (c *Connection) MarkInUse()      { c.inUse.Store(true); c.isReset.Store(false) }
func (c *Connection) MarkIdle()       { c.inUse.Store(false); c.idleSince = time.Now() }
func (c *Connection) IsStale() bool   { return c.stale.Load() }
func (c *Connection) MarkStale()      { c.stale.Store(true) }
func (c *Connection) IsDefunct() bool { return c.defunct.Load() }
func (c *Connection) IsClosed() bool  { return c.closed.Load() }
func (c *Connection) IsClean() bool   { return c.isReset.Load() && c.stateLocked() == StateReady }

func (c *Connection) Close() {
	if c.closed.CompareAndSwap(false, true) {
		_ = c.conn.Close()
	}
}

// SupportsRouteMessage reports whether this connection's negotiated version
// can use the dedicated ROUTE message (v>=4.3) rather than a procedure call.
func (c *Connection) SupportsRouteMessage() bool {
	return c.version.Major > 4 || (c.version.Major == 4 && c.version.Minor >= 3)
}

// AuthenticatesViaLogon reports whether HELLO carries no credentials and a
// separate LOGON message follows (v>=5.1).
func (c *Connection) AuthenticatesViaLogon() bool {
	return c.version.Major > 5 || (c.version.Major == 5 && c.version.Minor >= 1)
}

func (c *Connection) TelemetryEnabled() bool { return c.telemetryEnabled }

// Pending reports how many enqueued requests are still awaiting their
// terminal reply, letting a caller driving its own dispatch loop (the
// routed pool's getRoutingTable fallback, result streaming) know when it
// has fully drained the connection.
func (c *Connection) Pending() int { return len(c.pending) }

// Enqueue encodes msg, chunk-frames it into the pending write buffer and
// registers h as the handler for its eventual terminal reply. The
// connection's state is advanced optimistically: the server is guaranteed
// to process pipelined requests in order, so the "from" state of request
// N+1 is the anticipated "to" state of request N.
func (c *Connection) Enqueue(kind MessageKind, msg *packstream.Structure, h *ResponseHandler) liberr.Error {
	c.mu.Lock()
	from := c.state
	next, fatal, err := nextState(from, kind, c.AuthenticatesViaLogon())
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next
	c.mu.Unlock()

	var body bytes.Buffer
	enc := packstream.NewEncoder(&body)
	if err := enc.Encode(msg); err != nil {
		return err
	}
	if e := enc.Flush(); e != nil {
		return ErrorTransport.Error(e)
	}

	cw := chunk.NewWriter(&c.writeBuf)
	if _, e := cw.Write(body.Bytes()); e != nil {
		return ErrorTransport.Error(e)
	}
	if err := cw.Flush(); err != nil {
		return err
	}

	c.pending = append(c.pending, pendingEntry{kind: kind, handler: h, fatal: fatal, nextState: next})
	c.isReset.Store(kind == MsgReset)
	return nil
}

// Flush writes every chunk-framed message queued by Enqueue since the last
// Flush to the socket in a single syscall -- the pipelining the protocol
// description calls for.
func (c *Connection) Flush() liberr.Error {
	if c.writeBuf.Len() == 0 {
		return nil
	}

	payload := c.writeBuf.Bytes()
	if _, e := c.conn.Write(payload); e != nil {
		c.defunct.Store(true)
		return ErrorTransport.Error(e)
	}
	c.writeBuf.Reset()
	return nil
}

// Dispatch reads exactly one wire message and routes it to the handler at
// the front of the pending queue. RECORD messages invoke OnRecord and leave
// the handler queued; SUCCESS/FAILURE/IGNORED are terminal and pop it.
func (c *Connection) Dispatch() liberr.Error {
	if len(c.pending) == 0 {
		return ErrorProtocolViolation.Error()
	}

	r := chunk.NewReader(c.conn)
	raw, rerr := r.ReadMessage()
	if rerr != nil {
		c.defunct.Store(true)
		return ErrorTransport.Error(rerr)
	}

	dec := packstream.NewDecoder(bytes.NewReader(raw))
	val, derr := dec.Decode()
	if derr != nil {
		c.defunct.Store(true)
		return derr
	}

	st, ok := val.(*packstream.Structure)
	if !ok {
		c.defunct.Store(true)
		return ErrorProtocolViolation.Error()
	}

	entry := c.pending[0]

	switch st.Tag {
	case TagRecord:
		if entry.handler != nil && entry.handler.OnRecord != nil {
			fields, _ := st.Fields[0].(packstream.List)
			entry.handler.OnRecord(fields)
		}
		return nil
	case TagSuccess:
		c.pending = c.pending[1:]
		meta, _ := structureMeta(st)
		if entry.handler != nil && entry.handler.OnSuccess != nil {
			entry.handler.OnSuccess(meta)
		}
		return nil
	case TagIgnored:
		c.pending = c.pending[1:]
		if entry.handler != nil && entry.handler.OnIgnored != nil {
			entry.handler.OnIgnored()
		}
		return nil
	case TagFailure:
		c.pending = c.pending[1:]
		meta, _ := structureMeta(st)
		code := stringField(meta, "code")
		message := stringField(meta, "message")

		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()

		if entry.handler != nil && entry.handler.OnFailure != nil {
			entry.handler.OnFailure(code, message)
		}
		if entry.fatal {
			c.defunct.Store(true)
		}
		return ErrorServerFailure.Error(&ServerError{Code: code, Message: message})
	default:
		c.defunct.Store(true)
		return ErrorProtocolViolation.Error()
	}
}

func structureMeta(s *packstream.Structure) (packstream.Map, bool) {
	if len(s.Fields) == 0 {
		return packstream.Map{}, false
	}
	m, ok := s.Fields[0].(packstream.Map)
	return m, ok
}

func stringField(m packstream.Map, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(packstream.String); ok {
			return string(s)
		}
	}
	return ""
}
