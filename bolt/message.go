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

import "github.com/sabouaram/graphbolt/packstream"

// Structure tags for request and summary messages. Values match the wire
// protocol's message tag byte, carried as the second byte of a tiny
// structure header (0xB0-0xBF | size, tag).
const (
	TagHello    byte = 0x01
	TagLogon    byte = 0x6A
	TagLogoff   byte = 0x6B
	TagRun      byte = 0x10
	TagBegin    byte = 0x11
	TagCommit   byte = 0x12
	TagRollback byte = 0x13
	TagDiscard  byte = 0x2F
	TagPull     byte = 0x3F
	TagReset    byte = 0x0F
	TagRoute    byte = 0x66
	TagTelemetry byte = 0x54

	TagSuccess byte = 0x70
	TagFailure byte = 0x7F
	TagIgnored byte = 0x7E
	TagRecord  byte = 0x71
)

func newRequest(tag byte, fields ...packstream.Value) *packstream.Structure {
	return packstream.NewStructure(tag, fields...)
}

// AccessMode is the mode a BEGIN/auto-commit RUN requests of the server.
type AccessMode int

const (
	AccessWrite AccessMode = iota
	AccessRead
)

func (m AccessMode) String() string {
	if m == AccessRead {
		return "r"
	}
	return "w"
}

// Hello builds a HELLO request. The v5.1+ split of credentials into a
// separate LOGON message is a caller concern: Hello always carries the
// extra map given, and it is the caller's job to omit auth fields there
// when targeting v>=5.1.
func Hello(extra packstream.Map) *packstream.Structure {
	return newRequest(TagHello, extra)
}

func Logon(auth packstream.Map) *packstream.Structure {
	return newRequest(TagLogon, auth)
}

func Logoff() *packstream.Structure {
	return newRequest(TagLogoff)
}

func Run(query string, params packstream.Map, extra packstream.Map) *packstream.Structure {
	return newRequest(TagRun, packstream.String(query), params, extra)
}

func Begin(extra packstream.Map) *packstream.Structure {
	return newRequest(TagBegin, extra)
}

func Commit() *packstream.Structure {
	return newRequest(TagCommit)
}

func Rollback() *packstream.Structure {
	return newRequest(TagRollback)
}

func Pull(extra packstream.Map) *packstream.Structure {
	return newRequest(TagPull, extra)
}

func Discard(extra packstream.Map) *packstream.Structure {
	return newRequest(TagDiscard, extra)
}

func Reset() *packstream.Structure {
	return newRequest(TagReset)
}

func Route(routingCtx packstream.Map, bookmarks packstream.List, dbCtx packstream.Map) *packstream.Structure {
	return newRequest(TagRoute, routingCtx, bookmarks, dbCtx)
}

func Telemetry(apiEnum int) *packstream.Structure {
	return newRequest(TagTelemetry, packstream.Int64(apiEnum))
}

// TelemetryAPI enumerates the high-level API surfaces TELEMETRY reports.
type TelemetryAPI int

const (
	TelemetryManagedTransaction TelemetryAPI = iota
	TelemetryAutoCommit
	TelemetryUnmanagedTransaction
)
