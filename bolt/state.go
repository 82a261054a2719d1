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
)

// State is a connection's position in the bolt protocol state machine.
type State int

const (
	StateConnected State = iota
	StateAuthentication
	StateReady
	StateStreaming
	StateTxReadyOrStreaming
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateAuthentication:
		return "AUTHENTICATION"
	case StateReady:
		return "READY"
	case StateStreaming:
		return "STREAMING"
	case StateTxReadyOrStreaming:
		return "TX_READY_OR_STREAMING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// MessageKind enumerates the bolt request/summary messages this state
// machine dispatches on. Structure tags live in message.go.
type MessageKind int

const (
	MsgHello MessageKind = iota
	MsgLogon
	MsgLogoff
	MsgRun
	MsgBegin
	MsgPull
	MsgDiscard
	MsgCommit
	MsgRollback
	MsgReset
	MsgRoute
	MsgTelemetry
)

func (m MessageKind) String() string {
	switch m {
	case MsgHello:
		return "HELLO"
	case MsgLogon:
		return "LOGON"
	case MsgLogoff:
		return "LOGOFF"
	case MsgRun:
		return "RUN"
	case MsgBegin:
		return "BEGIN"
	case MsgPull:
		return "PULL"
	case MsgDiscard:
		return "DISCARD"
	case MsgCommit:
		return "COMMIT"
	case MsgRollback:
		return "ROLLBACK"
	case MsgReset:
		return "RESET"
	case MsgRoute:
		return "ROUTE"
	case MsgTelemetry:
		return "TELEMETRY"
	default:
		return "UNKNOWN"
	}
}

// transition is one row of the state table: in state From, sending message
// Kind succeeds into OnSuccess, or else moves to StateFailed (fatal states
// are signalled via Fatal instead).
type transition struct {
	From      State
	Kind      MessageKind
	OnSuccess State
	Fatal     bool
}

// stateTable encodes the full table from the connection state-machine
// description: one row per legal (state, message) pair. An absent entry is
// a protocol violation -- sending that message in that state is a bug in
// the caller, not a server-reported failure.
var stateTable = []transition{
	// MsgHello's row is a placeholder: nextState rewrites OnSuccess to
	// StateReady directly for connections that carry credentials inline
	// (protocol < 5.1, no separate LOGON) rather than splitting to
	// StateAuthentication for a LOGON that will never be sent.
	{From: StateConnected, Kind: MsgHello, OnSuccess: StateAuthentication, Fatal: true},
	{From: StateAuthentication, Kind: MsgLogon, OnSuccess: StateReady, Fatal: true},
	{From: StateReady, Kind: MsgRun, OnSuccess: StateStreaming},
	{From: StateReady, Kind: MsgBegin, OnSuccess: StateTxReadyOrStreaming},
	{From: StateReady, Kind: MsgLogoff, OnSuccess: StateAuthentication},
	{From: StateStreaming, Kind: MsgPull, OnSuccess: StateReady},
	{From: StateStreaming, Kind: MsgDiscard, OnSuccess: StateReady},
	{From: StateTxReadyOrStreaming, Kind: MsgRun, OnSuccess: StateTxReadyOrStreaming},
	{From: StateTxReadyOrStreaming, Kind: MsgPull, OnSuccess: StateTxReadyOrStreaming},
	{From: StateTxReadyOrStreaming, Kind: MsgDiscard, OnSuccess: StateTxReadyOrStreaming},
	{From: StateTxReadyOrStreaming, Kind: MsgCommit, OnSuccess: StateReady},
	{From: StateTxReadyOrStreaming, Kind: MsgRollback, OnSuccess: StateReady},
	{From: StateFailed, Kind: MsgReset, OnSuccess: StateReady, Fatal: true},
	{From: StateReady, Kind: MsgRoute, OnSuccess: StateReady},
	{From: StateReady, Kind: MsgTelemetry, OnSuccess: StateReady},
}

// lookupTransition finds the row for (from, kind). RESET is legal from any
// state and always targets StateReady, so it is answered here directly
// rather than enumerated in stateTable for every state.
func lookupTransition(from State, kind MessageKind) (transition, bool) {
	if kind == MsgReset {
		return transition{From: from, Kind: MsgReset, OnSuccess: StateReady, Fatal: true}, true
	}
	for _, t := range stateTable {
		if t.From == from && t.Kind == kind {
			return t, true
		}
	}
	return transition{}, false
}

// nextState returns the state to move to after a successful reply to kind
// sent while in from, or ErrorInvalidState if that message is not legal in
// that state. fatalOnFailure (when ok) reports whether a server FAILURE in a
// fatal transition must close the connection outright rather than just
// moving it to StateFailed.
func nextState(from State, kind MessageKind, logonRequired bool) (next State, fatalOnFailure bool, err liberr.Error) {
	t, ok := lookupTransition(from, kind)
	if !ok {
		return from, false, ErrorInvalidState.Error()
	}
	if kind == MsgHello && !logonRequired {
		return StateReady, t.Fatal, nil
	}
	return t.OnSuccess, t.Fatal, nil
}
