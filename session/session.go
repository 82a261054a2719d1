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

// Package session implements the single-connection, not-concurrent-safe
// request/response unit: auto-commit queries, explicit transactions, the
// managed-transaction retry loop, and bookmark tracking.
package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sabouaram/graphbolt/bolt"
	"github.com/sabouaram/graphbolt/config"
	liberr "github.com/sabouaram/graphbolt/errors"
	"github.com/sabouaram/graphbolt/logger"
	logfld "github.com/sabouaram/graphbolt/logger/fields"
	"github.com/sabouaram/graphbolt/packstream"
	"github.com/sabouaram/graphbolt/result"
)

// Acquirer is the connection source a Session borrows from, satisfied by
// both a direct *pool.Pool and a routed *pool.RoutedPool without session
// needing to know which. The driver facade supplies the concrete adapter.
type Acquirer interface {
	Acquire(ctx context.Context, mode bolt.AccessMode, database string) (*bolt.Connection, liberr.Error)
	Release(conn *bolt.Connection)
	DefaultDatabase(ctx context.Context) (string, liberr.Error)

	// RemoveWriter drops addr from the writer side of whatever routing
	// state the acquirer holds, called after a Neo.ClientError.Cluster.
	// NotALeader or ...ForbiddenOnReadOnlyDatabase FAILURE. A direct
	// (non-routed) acquirer has no writer set and treats this as a no-op.
	RemoveWriter(addr bolt.Address)

	// MarkStale flags every pooled idle connection to addr stale, called
	// after a Neo.ClientError.Security.AuthorizationExpired FAILURE so
	// credentials the server just revoked are not handed out again.
	MarkStale(addr bolt.Address)

	// Deactivate drops addr from any routing state and closes its pooled
	// connections outright, called after a database- or
	// service-unavailable FAILURE.
	Deactivate(addr bolt.Address)
}

// Config bundles the per-session settings a driver facade fills in from
// config.Session plus whatever the caller overrode when opening the
// session.
type Config struct {
	AccessMode       bolt.AccessMode
	Database         string
	FetchSize        int64
	ImpersonatedUser string
	Bookmarks        []string
	Retry            config.Retry
	BookmarkManager  BookmarkManager
	Logger           logger.Logger
}

// Session holds at most one connection at a time and is not safe for
// concurrent use; concurrent entry is detected and raises
// ErrorConcurrentAccess rather than corrupting state.
type Session struct {
	acquirer Acquirer
	cfg      Config
	log      logger.Logger

	busy   int32
	closed bool
	failed bool

	conn *bolt.Connection
	tx   *Transaction
	auto *result.Result

	bookmarksMu sync.Mutex
	bookmarks   []string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New returns a Session borrowing connections from acquirer, seeded with
// cfg's initial bookmarks and defaults.
func New(acquirer Acquirer, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logger.New(context.Background())
	}
	return &Session{
		acquirer:  acquirer,
		cfg:       cfg,
		log:       cfg.Logger,
		bookmarks: append([]string(nil), cfg.Bookmarks...),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// enter claims the session for the duration of one public call, detecting
// concurrent use; it leaves the closed check to callers that need it, since
// Close itself must be able to enter a closed session to no-op cleanly.
func (s *Session) enter() liberr.Error {
	if !atomic.CompareAndSwapInt32(&s.busy, 0, 1) {
		return ErrorConcurrentAccess.Error()
	}
	return nil
}

func (s *Session) leave() { atomic.StoreInt32(&s.busy, 0) }

// enterOpen is enter plus the closed-session check every call except Close
// needs.
func (s *Session) enterOpen() liberr.Error {
	if err := s.enter(); err != nil {
		return err
	}
	if s.closed {
		s.leave()
		return ErrorSessionClosed.Error()
	}
	return nil
}

// LastBookmarks returns the bookmarks accumulated by this session so far:
// the union of the ones it was opened with and the last one returned by
// each completed transaction or auto-commit result.
func (s *Session) LastBookmarks() []string {
	s.bookmarksMu.Lock()
	defer s.bookmarksMu.Unlock()
	return append([]string(nil), s.bookmarks...)
}

func (s *Session) recordBookmark(bookmark string) {
	if bookmark == "" {
		return
	}
	s.bookmarksMu.Lock()
	previous := s.bookmarks
	s.bookmarks = mergeBookmarks(s.bookmarks, []string{bookmark})
	next := s.bookmarks
	s.bookmarksMu.Unlock()

	if s.cfg.BookmarkManager != nil {
		_ = s.cfg.BookmarkManager.UpdateBookmarks(context.Background(), previous, next)
	}
}

func (s *Session) effectiveBookmarks() []string {
	s.bookmarksMu.Lock()
	own := append([]string(nil), s.bookmarks...)
	s.bookmarksMu.Unlock()

	if s.cfg.BookmarkManager == nil {
		return own
	}
	extra, err := s.cfg.BookmarkManager.GetBookmarks(context.Background())
	if err != nil {
		return own
	}
	return mergeBookmarks(own, extra)
}

func (s *Session) database() string {
	if s.cfg.Database != "" {
		return s.cfg.Database
	}
	return ""
}

func (s *Session) resolveDatabase(ctx context.Context) (string, liberr.Error) {
	if db := s.database(); db != "" {
		return db, nil
	}
	return s.acquirer.DefaultDatabase(ctx)
}

func (s *Session) acquire(ctx context.Context, mode bolt.AccessMode) liberr.Error {
	if s.conn != nil {
		return nil
	}
	db, err := s.resolveDatabase(ctx)
	if err != nil {
		return err
	}
	conn, err := s.acquirer.Acquire(ctx, mode, db)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *Session) release() {
	if s.conn == nil {
		return
	}
	s.acquirer.Release(s.conn)
	s.conn = nil
}

// Run issues an auto-commit query: a RUN not wrapped in an explicit
// transaction, committed implicitly by the server as it streams.
func (s *Session) Run(ctx context.Context, query string, params packstream.Map, txTimeout time.Duration) (*result.Result, liberr.Error) {
	if err := s.enterOpen(); err != nil {
		return nil, err
	}
	defer s.leave()

	if s.tx != nil {
		return nil, ErrorTransactionAlreadyOpen.Error()
	}
	if s.auto != nil {
		if summary, serr := s.auto.Consume(); serr == nil && summary != nil {
			s.recordBookmark(summary.Bookmark)
		}
		s.auto = nil
		s.release()
	}

	mode := s.cfg.AccessMode
	if err := s.acquire(ctx, mode); err != nil {
		return nil, err
	}

	extra := buildExtra(s.database(), s.effectiveBookmarks(), mode, txTimeout, s.cfg.ImpersonatedUser)
	fetchSize := s.cfg.FetchSize
	if fetchSize == 0 {
		fetchSize = 1000
	}

	r, err := result.New(s.conn, query, params, extra, fetchSize)
	if err != nil {
		s.observeFailure(err)
		s.failed = true
		s.release()
		return nil, err
	}
	s.auto = r
	return r, nil
}

// BeginTransaction opens an explicit transaction in the requested mode.
func (s *Session) BeginTransaction(ctx context.Context, mode bolt.AccessMode, txTimeout time.Duration) (*Transaction, liberr.Error) {
	if err := s.enterOpen(); err != nil {
		return nil, err
	}
	defer s.leave()

	return s.beginTransactionLocked(ctx, mode, txTimeout)
}

// beginTransactionLocked is BeginTransaction's body, callable by
// executeManaged which already holds the session's busy guard for the
// whole retry loop.
func (s *Session) beginTransactionLocked(ctx context.Context, mode bolt.AccessMode, txTimeout time.Duration) (*Transaction, liberr.Error) {
	if s.tx != nil {
		return nil, ErrorTransactionAlreadyOpen.Error()
	}
	if s.auto != nil {
		if summary, serr := s.auto.Consume(); serr == nil && summary != nil {
			s.recordBookmark(summary.Bookmark)
		}
		s.auto = nil
		s.release()
	}

	if err := s.acquire(ctx, mode); err != nil {
		return nil, err
	}

	extra := buildExtra(s.database(), s.effectiveBookmarks(), mode, txTimeout, s.cfg.ImpersonatedUser)
	if err := s.conn.BeginSync(extra); err != nil {
		s.observeFailure(err)
		s.failed = true
		s.release()
		return nil, err
	}

	tx := &Transaction{session: s, conn: s.conn, mode: mode, open: true, fetchSize: s.cfg.FetchSize}
	s.tx = tx
	return tx, nil
}

// endTransaction is called by Transaction.Commit/Rollback to detach it from
// the session and release the borrowed connection.
func (s *Session) endTransaction(bookmark string) {
	s.tx = nil
	s.recordBookmark(bookmark)
	s.release()
}

// TransactionWork is the user function run inside a managed transaction; a
// non-nil, non-retriable error aborts the retry loop and is returned as-is.
type TransactionWork func(tx *Transaction) (interface{}, error)

// ExecuteRead runs work inside a managed read transaction, retrying on
// transient failures until it succeeds or the retry deadline elapses.
func (s *Session) ExecuteRead(ctx context.Context, work TransactionWork) (interface{}, error) {
	return s.executeManaged(ctx, bolt.AccessRead, work)
}

// ExecuteWrite runs work inside a managed write transaction, retrying on
// transient failures until it succeeds or the retry deadline elapses.
func (s *Session) ExecuteWrite(ctx context.Context, work TransactionWork) (interface{}, error) {
	return s.executeManaged(ctx, bolt.AccessWrite, work)
}

func (s *Session) executeManaged(ctx context.Context, mode bolt.AccessMode, work TransactionWork) (interface{}, error) {
	if err := s.enterOpen(); err != nil {
		return nil, err
	}
	defer s.leave()

	retry := s.cfg.Retry
	deadline := time.Time{}
	attempt := 0

	for {
		tx, err := s.beginTransactionLocked(ctx, mode, 0)
		if err != nil {
			return nil, err
		}

		value, werr := work(tx)
		if werr != nil {
			_ = tx.Rollback()
			if !isRetriable(werr, retry) {
				return nil, werr
			}
		} else if cerr := tx.Commit(); cerr != nil {
			werr = cerr
			if !isRetriable(cerr, retry) {
				return nil, cerr
			}
		} else {
			return value, nil
		}

		attempt++
		if attempt == 1 {
			// the first attempt never counts toward the deadline; it starts
			// the clock for every attempt after it.
			deadline = time.Now().Add(retry.MaxTransactionRetryTime)
		} else if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, ErrorRetryDeadlineExceeded.Error()
		}

		delay := s.backoff(retry, attempt)
		s.log.Warning("session: retrying managed transaction", logfld.New(ctx).Add("attempt", attempt).Add("delay", delay.String()), werr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoff computes initial * multiplier^(attempt-1) jittered by ±jitter,
// using a per-session seeded RNG so concurrent sessions don't synchronize.
func (s *Session) backoff(retry config.Retry, attempt int) time.Duration {
	initial := retry.InitialRetryDelay
	if initial <= 0 {
		initial = time.Second
	}
	multiplier := retry.RetryDelayMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	jitter := retry.RetryDelayJitterFactor

	base := float64(initial) * pow(multiplier, attempt-1)

	s.rngMu.Lock()
	factor := 1 + (s.rng.Float64()*2-1)*jitter
	s.rngMu.Unlock()

	d := time.Duration(base * factor)
	if d < 0 {
		d = 0
	}
	return d
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// isRetriable classifies a managed-transaction failure: transport and
// session-expired errors are always retriable; server-reported transient
// errors are retriable unless their code is on the denylist.
func isRetriable(err error, retry config.Retry) bool {
	if liberr.Has(err, bolt.ErrorServiceUnavailable) || liberr.Has(err, bolt.ErrorSessionExpired) || liberr.Has(err, bolt.ErrorTransport) {
		return true
	}

	var serverErr *bolt.ServerError
	if errors.As(err, &serverErr) {
		if retry.TransientDenylist[serverErr.Code] {
			return false
		}
		if _, retriable := classifyFailureCode(serverErr.Code); retriable {
			return true
		}
		return containsTransientError(serverErr.Code)
	}

	return false
}

// observeFailure extracts a *bolt.ServerError from err, if any, and reports
// its FAILURE code to the acquirer so the resulting writer-eviction,
// staleness, or deactivation effect applies before the connection that
// just failed is released back to the pool. Called at every point a Bolt
// round trip might surface a genuine server FAILURE.
func (s *Session) observeFailure(err error) {
	if s.conn == nil {
		return
	}
	var serverErr *bolt.ServerError
	if !errors.As(err, &serverErr) {
		return
	}

	addr := s.conn.Address()
	switch effect, _ := classifyFailureCode(serverErr.Code); effect {
	case effectRemoveWriter:
		s.acquirer.RemoveWriter(addr)
	case effectMarkStale:
		s.acquirer.MarkStale(addr)
	case effectDeactivate:
		s.acquirer.Deactivate(addr)
	}
}

func containsTransientError(code string) bool {
	const marker = ".TransientError."
	return len(code) > len(marker) && indexOf(code, marker) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// Close drives any attached auto-commit result to completion (harvesting
// its bookmark), rolls back any still-open explicit transaction, and
// releases the borrowed connection.
func (s *Session) Close(ctx context.Context) liberr.Error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.tx != nil {
		_ = s.tx.Rollback()
	}
	if s.auto != nil && !s.failed {
		if summary, serr := s.auto.Consume(); serr == nil && summary != nil {
			s.recordBookmark(summary.Bookmark)
		}
		s.auto = nil
	}
	s.release()
	return nil
}

// buildExtra assembles the "extra" map RUN/BEGIN attach to a request:
// bookmarks to wait on, the target database, read mode (write is the
// server's default and is never sent explicitly), the transaction timeout
// in whole milliseconds rounded up, and an impersonated user.
func buildExtra(database string, bookmarks []string, mode bolt.AccessMode, txTimeout time.Duration, impersonatedUser string) packstream.Map {
	extra := packstream.Map{}

	if len(bookmarks) > 0 {
		list := make(packstream.List, len(bookmarks))
		for i, b := range bookmarks {
			list[i] = packstream.String(b)
		}
		extra["bookmarks"] = list
	}
	if database != "" {
		extra["db"] = packstream.String(database)
	}
	if mode == bolt.AccessRead {
		extra["mode"] = packstream.String("r")
	}
	if txTimeout > 0 {
		ms := txTimeout.Milliseconds()
		if txTimeout%time.Millisecond != 0 {
			ms++
		}
		extra["tx_timeout"] = packstream.Int64(ms)
	}
	if impersonatedUser != "" {
		extra["imp_user"] = packstream.String(impersonatedUser)
	}

	return extra
}
