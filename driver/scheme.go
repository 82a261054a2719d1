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

package driver

import (
	"strings"

	"github.com/sabouaram/graphbolt/bolt"
	liberr "github.com/sabouaram/graphbolt/errors"
)

// Scheme is the URI scheme recognized at the driver boundary. It decides
// only two things: direct vs. routed pool, and whether the connection must
// be encrypted. Everything else a full URL/DSN carries (query parameters,
// userinfo, multiple hosts) is the caller's concern -- New accepts only the
// plain "<scheme>://<host>[:<port>]" form that ParseScheme splits.
type Scheme string

const (
	SchemeBolt     Scheme = "bolt"
	SchemeBoltTLS  Scheme = "bolt+s"
	SchemeBoltSSC  Scheme = "bolt+ssc"
	SchemeNeo4j    Scheme = "neo4j"
	SchemeNeo4jTLS Scheme = "neo4j+s"
	SchemeNeo4jSSC Scheme = "neo4j+ssc"
)

func (s Scheme) routed() bool {
	switch s {
	case SchemeNeo4j, SchemeNeo4jTLS, SchemeNeo4jSSC:
		return true
	default:
		return false
	}
}

func (s Scheme) encrypted() bool {
	switch s {
	case SchemeBoltTLS, SchemeBoltSSC, SchemeNeo4jTLS, SchemeNeo4jSSC:
		return true
	default:
		return false
	}
}

// ParseScheme splits "<scheme>://<host>:<port>" into a Scheme and the
// bare UnresolvedAddress target. It rejects anything carrying userinfo,
// a path or query string -- those belong to the URL/DSN parsing a caller
// does before handing New a plain target.
func ParseScheme(uri string) (Scheme, bolt.UnresolvedAddress, liberr.Error) {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return "", bolt.UnresolvedAddress{}, ErrorInvalidURI.Error()
	}
	scheme := Scheme(uri[:idx])
	if !scheme.valid() {
		return "", bolt.UnresolvedAddress{}, ErrorUnsupportedScheme.Error()
	}

	rest := uri[idx+3:]
	if strings.ContainsAny(rest, "/?#@") {
		return "", bolt.UnresolvedAddress{}, ErrorInvalidURI.Error()
	}

	host, port, ok := strings.Cut(rest, ":")
	if host == "" {
		return "", bolt.UnresolvedAddress{}, ErrorInvalidURI.Error()
	}
	if !ok || port == "" {
		port = "7687"
	}

	return scheme, bolt.UnresolvedAddress{Host: host, Port: port}, nil
}

func (s Scheme) valid() bool {
	switch s {
	case SchemeBolt, SchemeBoltTLS, SchemeBoltSSC, SchemeNeo4j, SchemeNeo4jTLS, SchemeNeo4jSSC:
		return true
	default:
		return false
	}
}
