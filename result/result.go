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

// Package result drives one RUN's record stream to completion: buffering,
// paging via PULL/DISCARD, and the summary a consumed result yields.
package result

import (
	"github.com/sabouaram/graphbolt/bolt"
	liberr "github.com/sabouaram/graphbolt/errors"
	"github.com/sabouaram/graphbolt/packstream"
)

// Summary is the metadata a fully consumed result accumulates: the
// bookmark to chain into the next transaction, and whatever raw stats,
// notifications and timing fields the server attached to the final
// PULL/DISCARD success.
type Summary struct {
	Bookmark string
	Raw      packstream.Map
}

// Result streams one RUN's records, paging through PULL/DISCARD as the
// consumer asks for more. It is owned exclusively by one consumer (the
// session or explicit transaction that produced it) and has no internal
// locking.
type Result struct {
	conn      *bolt.Connection
	keys      []string
	qid       int64
	fetchSize int64

	buffer []packstream.List

	attached   bool
	streaming  bool
	hasMore    bool
	discarding bool
	exhausted  bool
	consumed   bool
	outOfScope bool

	summary *Summary
}

// New sends RUN for query and returns a Result attached to its stream,
// with keys already populated from the RUN success -- callers can inspect
// Keys() before pulling any records.
func New(conn *bolt.Connection, query string, params, extra packstream.Map, fetchSize int64) (*Result, liberr.Error) {
	r := &Result{conn: conn, qid: -1, fetchSize: fetchSize}

	done := false
	h := &bolt.ResponseHandler{
		OnSuccess: func(meta packstream.Map) {
			r.keys = stringListField(meta, "fields")
			if v, ok := meta["qid"].(packstream.Int64); ok {
				r.qid = int64(v)
			}
			r.attached = true
			r.hasMore = true
			done = true
		},
		OnFailure: func(code, message string) {
			r.attached = false
			done = true
		},
	}

	if err := conn.Enqueue(bolt.MsgRun, bolt.Run(query, params, extra), h); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	for !done {
		if err := conn.Dispatch(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Keys returns the result's column names, known as soon as RUN succeeds.
func (r *Result) Keys() []string { return r.keys }

// step performs exactly one action of the iteration algorithm: dispatch a
// pending wire message, or send the next DISCARD/PULL page request.
func (r *Result) step() liberr.Error {
	switch {
	case r.streaming:
		return r.conn.Dispatch()
	case r.discarding:
		return r.sendDiscard()
	case r.hasMore:
		return r.sendPull()
	default:
		r.attached = false
		return nil
	}
}

// ensure buffers at least n records, or drains to exhaustion trying.
func (r *Result) ensure(n int) liberr.Error {
	if r.outOfScope {
		return ErrorResultConsumed.Error()
	}
	for len(r.buffer) < n && r.attached {
		if err := r.step(); err != nil {
			return err
		}
	}
	return nil
}

// drain discards every remaining record and runs the stream to
// completion, building the summary from the terminal metadata.
func (r *Result) drain() liberr.Error {
	if r.outOfScope {
		return ErrorResultConsumed.Error()
	}
	r.discarding = true
	r.buffer = nil
	for r.attached {
		if err := r.step(); err != nil {
			return err
		}
	}
	r.consumed = true
	return nil
}

func (r *Result) sendPull() liberr.Error {
	extra := packstream.Map{"n": packstream.Int64(r.fetchSize)}
	if r.qid != -1 {
		extra["qid"] = packstream.Int64(r.qid)
	}

	h := &bolt.ResponseHandler{
		OnRecord: func(fields packstream.List) {
			r.buffer = append(r.buffer, fields)
		},
		OnSuccess: func(meta packstream.Map) {
			r.streaming = false
			if more, ok := meta["has_more"].(packstream.Bool); ok && bool(more) {
				r.hasMore = true
				return
			}
			r.finish(meta)
		},
		OnFailure: func(code, message string) {
			r.streaming = false
			r.attached = false
		},
	}

	if err := r.conn.Enqueue(bolt.MsgPull, bolt.Pull(extra), h); err != nil {
		return err
	}
	if err := r.conn.Flush(); err != nil {
		return err
	}
	r.hasMore = false
	r.streaming = true
	return nil
}

func (r *Result) sendDiscard() liberr.Error {
	extra := packstream.Map{"n": packstream.Int64(-1)}
	if r.qid != -1 {
		extra["qid"] = packstream.Int64(r.qid)
	}

	h := &bolt.ResponseHandler{
		OnSuccess: func(meta packstream.Map) {
			r.streaming = false
			r.discarding = false
			r.finish(meta)
		},
		OnFailure: func(code, message string) {
			r.streaming = false
			r.discarding = false
			r.attached = false
		},
	}

	if err := r.conn.Enqueue(bolt.MsgDiscard, bolt.Discard(extra), h); err != nil {
		return err
	}
	if err := r.conn.Flush(); err != nil {
		return err
	}
	r.streaming = true
	return nil
}

func (r *Result) finish(meta packstream.Map) {
	r.hasMore = false
	r.attached = false
	r.exhausted = true
	bookmark, _ := meta["bookmark"].(packstream.String)
	r.summary = &Summary{Bookmark: string(bookmark), Raw: meta}
}

// Consume drives the stream to completion, discarding any unread records,
// and returns the resulting summary.
func (r *Result) Consume() (*Summary, liberr.Error) {
	if r.outOfScope && r.consumed {
		return r.summary, ErrorResultConsumed.Error()
	}
	if err := r.drain(); err != nil {
		return r.summary, err
	}
	return r.summary, nil
}

// Peek buffers and returns the next record without removing it from the
// stream, or false if the result has no more records.
func (r *Result) Peek() (packstream.List, bool, liberr.Error) {
	if err := r.ensure(1); err != nil {
		return nil, false, err
	}
	if len(r.buffer) == 0 {
		return nil, false, nil
	}
	return r.buffer[0], true, nil
}

// Fetch buffers and returns up to n records, fewer if the stream is
// exhausted first.
func (r *Result) Fetch(n int) ([]packstream.List, liberr.Error) {
	if err := r.ensure(n); err != nil {
		return nil, err
	}
	if n > len(r.buffer) {
		n = len(r.buffer)
	}
	out := r.buffer[:n]
	r.buffer = r.buffer[n:]
	return out, nil
}

// Single buffers up to two records then consumes the stream. Zero records
// is always an error; more than one is an error when strict is true,
// otherwise a warning-worthy case that still returns the first record.
func (r *Result) Single(strict bool) (packstream.List, liberr.Error) {
	if err := r.ensure(2); err != nil {
		return nil, err
	}

	var (
		rec  packstream.List
		fail liberr.Error
	)
	switch len(r.buffer) {
	case 0:
		fail = ErrorResultNotSingle.Error()
	case 1:
		rec = r.buffer[0]
	default:
		rec = r.buffer[0]
		if strict {
			fail = ErrorResultNotSingle.Error()
		}
	}

	if _, err := r.Consume(); err != nil && fail == nil {
		fail = err
	}
	if fail != nil {
		return nil, fail
	}
	return rec, nil
}

// MarkOutOfScope drains the result (if still attached) and flips it into
// the out-of-scope state a closed transaction leaves its results in:
// further access raises ErrorResultConsumed.
func (r *Result) MarkOutOfScope() liberr.Error {
	if r.outOfScope {
		return nil
	}
	var err liberr.Error
	if r.attached {
		err = r.drain()
	}
	r.outOfScope = true
	return err
}

func stringListField(meta packstream.Map, key string) []string {
	v, ok := meta[key].(packstream.List)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(v))
	for _, item := range v {
		if s, ok := item.(packstream.String); ok {
			out = append(out, string(s))
		}
	}
	return out
}
