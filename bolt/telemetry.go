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

import liberr "github.com/sabouaram/graphbolt/errors"

// EmitTelemetry queues a fire-and-forget TELEMETRY message ahead of a
// high-level API call when the connection's negotiated version supports it
// and the server advertised the telemetry.enabled hint. Callers still need
// to Flush; the response (a plain SUCCESS) is reconciled like any other
// queued request and can be ignored by passing a handler with no callbacks.
func (c *Connection) EmitTelemetry(api TelemetryAPI, hintEnabled bool) liberr.Error {
	if !c.TelemetryEnabled() || !hintEnabled {
		return nil
	}
	return c.Enqueue(MsgTelemetry, Telemetry(int(api)), &ResponseHandler{})
}
