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

package session

import (
	"github.com/sabouaram/graphbolt/bolt"
	liberr "github.com/sabouaram/graphbolt/errors"
	"github.com/sabouaram/graphbolt/packstream"
	"github.com/sabouaram/graphbolt/result"
)

// Transaction wraps one connection borrowed for the duration of an explicit
// BEGIN/COMMIT-or-ROLLBACK. It is owned by the Session that opened it and,
// like the session, is not safe for concurrent use.
type Transaction struct {
	session   *Session
	conn      *bolt.Connection
	mode      bolt.AccessMode
	fetchSize int64
	open      bool
	results   []*result.Result
}

// Run sends a RUN within the open transaction.
func (tx *Transaction) Run(query string, params packstream.Map) (*result.Result, liberr.Error) {
	if !tx.open {
		return nil, ErrorTransactionClosed.Error()
	}

	fetchSize := tx.fetchSize
	if fetchSize == 0 {
		fetchSize = 1000
	}

	r, err := result.New(tx.conn, query, params, packstream.Map{}, fetchSize)
	if err != nil {
		tx.session.observeFailure(err)
		return nil, err
	}
	tx.results = append(tx.results, r)
	return r, nil
}

// Commit marks every result this transaction produced out of scope, then
// commits and hands its bookmark to the owning session.
func (tx *Transaction) Commit() liberr.Error {
	if !tx.open {
		return ErrorTransactionClosed.Error()
	}
	tx.closeResults()

	meta, err := tx.conn.CommitSync()
	tx.open = false
	if err != nil {
		tx.session.observeFailure(err)
		tx.session.endTransaction("")
		return err
	}

	bookmark, _ := meta["bookmark"].(packstream.String)
	tx.session.endTransaction(string(bookmark))
	return nil
}

// Rollback marks every result this transaction produced out of scope, then
// rolls the transaction back.
func (tx *Transaction) Rollback() liberr.Error {
	if !tx.open {
		return ErrorTransactionClosed.Error()
	}
	tx.closeResults()

	err := tx.conn.RollbackSync()
	tx.open = false
	tx.session.observeFailure(err)
	tx.session.endTransaction("")
	return err
}

func (tx *Transaction) closeResults() {
	for _, r := range tx.results {
		_ = r.MarkOutOfScope()
	}
}
