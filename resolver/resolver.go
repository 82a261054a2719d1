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

// Package resolver expands an unresolved host/port pair into one or more
// dialable addresses, injected so callers can implement DNS load balancing,
// service discovery or test doubles without the pool knowing about it.
package resolver

import (
	"context"
	"net"

	"github.com/sabouaram/graphbolt/bolt"
)

// Resolver expands one unresolved address into the candidates a pool
// should try, in preference order.
type Resolver interface {
	Resolve(ctx context.Context, unresolved bolt.UnresolvedAddress) ([]bolt.Address, error)
}

type identityResolver struct{}

// Identity returns the default Resolver: it performs standard DNS
// resolution via net.DefaultResolver and otherwise passes the host through
// unchanged.
func Identity() Resolver {
	return identityResolver{}
}

func (identityResolver) Resolve(ctx context.Context, unresolved bolt.UnresolvedAddress) ([]bolt.Address, error) {
	ips, err := net.DefaultResolver.LookupHost(ctx, unresolved.Host)
	if err != nil || len(ips) == 0 {
		return []bolt.Address{bolt.NewAddress(unresolved.Host, unresolved.Port, unresolved.Host)}, nil
	}

	out := make([]bolt.Address, 0, len(ips))
	for _, ip := range ips {
		out = append(out, bolt.NewAddress(unresolved.Host, unresolved.Port, ip))
	}
	return out, nil
}

// FuncResolver adapts a plain function to the Resolver interface.
type FuncResolver func(ctx context.Context, unresolved bolt.UnresolvedAddress) ([]bolt.Address, error)

func (f FuncResolver) Resolve(ctx context.Context, unresolved bolt.UnresolvedAddress) ([]bolt.Address, error) {
	return f(ctx, unresolved)
}
