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
	"net"
)

// UnresolvedAddress is a host/port pair as given by the caller or returned
// in a routing table, before DNS resolution.
type UnresolvedAddress struct {
	Host string
	Port string
}

func (u UnresolvedAddress) String() string {
	return net.JoinHostPort(u.Host, u.Port)
}

// Address is a resolved, dialable endpoint. ResolvedHost is the literal IP
// used for dialing; Host is kept for SNI / display purposes.
type Address struct {
	Host         string
	Port         string
	ResolvedHost string
}

func NewAddress(host, port, resolvedHost string) Address {
	if resolvedHost == "" {
		resolvedHost = host
	}
	return Address{Host: host, Port: port, ResolvedHost: resolvedHost}
}

// Key identifies this address for pool and routing-table indexing purposes.
// Two addresses with the same Host/Port but different ResolvedHost are the
// same logical address.
func (a Address) Key() string {
	return net.JoinHostPort(a.Host, a.Port)
}

func (a Address) DialTarget() string {
	return net.JoinHostPort(a.ResolvedHost, a.Port)
}

func (a Address) String() string {
	return fmt.Sprintf("%s (%s)", a.Key(), a.ResolvedHost)
}

func (a Address) Unresolved() UnresolvedAddress {
	return UnresolvedAddress{Host: a.Host, Port: a.Port}
}
