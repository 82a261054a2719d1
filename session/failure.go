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

// poolEffect is the pool-level side effect a FAILURE code's status implies,
// mirroring the reference driver's AsyncNeo4jPool.on_write_failure/deactivate/
// mark_all_stale dispatch off the same codes.
type poolEffect int

const (
	effectNone poolEffect = iota
	effectRemoveWriter
	effectMarkStale
	effectDeactivate
)

const (
	codeNotALeader            = "Neo.ClientError.Cluster.NotALeader"
	codeForbiddenOnReadOnlyDB = "Neo.ClientError.General.ForbiddenOnReadOnlyDatabase"
	codeAuthorizationExpired  = "Neo.ClientError.Security.AuthorizationExpired"
	codeDatabaseUnavailable   = "Neo.TransientError.General.DatabaseUnavailable"
	codeServiceUnavailable    = "Neo.ClientError.General.ServiceUnavailable"
)

// classifyFailureCode maps a server FAILURE status code to the pool-level
// effect it triggers and whether a managed transaction retrying after it is
// safe: NotALeader/ForbiddenOnReadOnlyDatabase mean the write simply landed
// on the wrong cluster member and a retry against the real leader (found by
// the writer-set eviction this triggers) can succeed.
func classifyFailureCode(code string) (effect poolEffect, retriable bool) {
	switch code {
	case codeNotALeader, codeForbiddenOnReadOnlyDB:
		return effectRemoveWriter, true
	case codeAuthorizationExpired:
		return effectMarkStale, false
	case codeDatabaseUnavailable, codeServiceUnavailable:
		return effectDeactivate, true
	default:
		return effectNone, false
	}
}
