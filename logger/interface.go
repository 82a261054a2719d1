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

// Package logger is the structured event sink used by every other package in
// this module. It is deliberately small: a level-gated, field-carrying
// sink with a single stdlib-log backed default implementation, bridged to
// logrus only where a caller wants to plug their own logrus pipeline in.
package logger

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	logfld "github.com/sabouaram/graphbolt/logger/fields"
	loglvl "github.com/sabouaram/graphbolt/logger/level"
)

// FuncLog returns a Logger instance, used for lazy injection.
type FuncLog func() Logger

// Logger is the event sink every connection, pool, and session writes to.
// Implementations MUST be safe for concurrent use: many connections may log
// at once.
type Logger interface {
	// SetLevel changes the minimal level that reaches the underlying writer.
	SetLevel(lvl loglvl.Level)

	// GetLevel returns the current minimal level.
	GetLevel() loglvl.Level

	// SetFields replaces the default fields attached to every entry.
	SetFields(f logfld.Fields)

	// GetFields returns the default fields attached to every entry.
	GetFields() logfld.Fields

	// WithFields returns a derived Logger that merges extra into the default fields.
	WithFields(extra logfld.Fields) Logger

	// Debug logs a diagnostic message not normally of interest outside development.
	Debug(message string, fields logfld.Fields, args ...interface{})

	// Info logs a routine event (state transition, successful operation).
	Info(message string, fields logfld.Fields, args ...interface{})

	// Warning logs a degraded-but-continuing condition (stale address purged, retry scheduled).
	Warning(message string, fields logfld.Fields, args ...interface{})

	// Error logs a failure that aborted the current operation.
	Error(message string, err error, fields logfld.Fields, args ...interface{})

	// SetLogrus redirects entries to an externally configured logrus logger.
	SetLogrus(l *logrus.Logger)
}

// New returns a Logger writing to the standard library logger at InfoLevel.
func New(ctx context.Context) Logger {
	l := &lgr{
		m: sync.RWMutex{},
		f: logfld.New(ctx),
		r: new(atomic.Value),
	}
	l.SetLevel(loglvl.InfoLevel)
	l.r.Store((*logrus.Logger)(nil))
	return l
}
