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
	"fmt"

	liberr "github.com/sabouaram/graphbolt/errors"
)

const (
	ErrorHandshakeFailed liberr.CodeError = iota + liberr.MinPkgBolt
	ErrorHandshakeRefused
	ErrorTransport
	ErrorServiceUnavailable
	ErrorSessionExpired
	ErrorIncompleteCommit
	ErrorProtocolViolation
	ErrorServerFailure
	ErrorInvalidState
	ErrorConnectionDefunct
)

func init() {
	if liberr.ExistInMapMessage(ErrorHandshakeFailed) {
		panic(fmt.Errorf("error code collision with package bolt"))
	}
	liberr.RegisterIdFctMessage(ErrorHandshakeFailed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorHandshakeFailed:
		return "bolt: handshake failed"
	case ErrorHandshakeRefused:
		return "bolt: server rejected every proposed protocol version"
	case ErrorTransport:
		return "bolt: transport error"
	case ErrorServiceUnavailable:
		return "bolt: service unavailable"
	case ErrorSessionExpired:
		return "bolt: session expired"
	case ErrorIncompleteCommit:
		return "bolt: commit outcome unknown, connection lost awaiting response"
	case ErrorProtocolViolation:
		return "bolt: protocol violation"
	case ErrorServerFailure:
		return "bolt: server reported a failure"
	case ErrorInvalidState:
		return "bolt: message not valid in current connection state"
	case ErrorConnectionDefunct:
		return "bolt: connection is defunct"
	}

	return liberr.NullMessage
}

// ServerError carries a server-reported failure's structured status code
// (category.subcategory.name) and message, wrapped as the parent of
// ErrorServerFailure so callers can classify it (retriable transient vs.
// client vs. database) via errors.As instead of string matching.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return e.Code + ": " + e.Message
}
