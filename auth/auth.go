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

// Package auth supplies the credential and certificate collaborators the
// core invokes per connection init and on token-expired server failures.
package auth

import (
	"context"
	"crypto/tls"

	"github.com/sabouaram/graphbolt/packstream"
)

// Token is an opaque authentication token, carried verbatim into HELLO or
// LOGON as its Extra map.
type Token struct {
	Scheme string
	Realm  string
	Extra  packstream.Map
}

// ToMap renders the token as the map HELLO/LOGON expects.
func (t Token) ToMap() packstream.Map {
	m := packstream.Map{"scheme": packstream.String(t.Scheme)}
	if t.Realm != "" {
		m["realm"] = packstream.String(t.Realm)
	}
	for k, v := range t.Extra {
		m[k] = v
	}
	return m
}

// Manager lazily supplies credentials and is notified when the server
// reports them expired so it can refresh before the next attempt.
type Manager interface {
	GetAuth(ctx context.Context) (Token, error)
	OnAuthExpired(err error)
}

// CertificateProvider supplies client certificates for mTLS. Returning a
// nil certificate keeps whatever certificate is already configured.
type CertificateProvider interface {
	GetCertificate(ctx context.Context) (*tls.Certificate, error)
}

// Static is a Manager that always returns the same token -- the common
// case of a username/password or bearer token fixed at driver construction.
type Static struct {
	token Token
}

func NewStatic(token Token) *Static {
	return &Static{token: token}
}

func (s *Static) GetAuth(context.Context) (Token, error) {
	return s.token, nil
}

func (s *Static) OnAuthExpired(error) {}
