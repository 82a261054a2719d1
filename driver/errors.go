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
	"fmt"

	liberr "github.com/sabouaram/graphbolt/errors"
)

const (
	ErrorInvalidURI liberr.CodeError = iota + liberr.MinPkgDriver
	ErrorUnsupportedScheme
	ErrorCertificateProviderRequired
	ErrorDriverClosed
)

func init() {
	if liberr.ExistInMapMessage(ErrorInvalidURI) {
		panic(fmt.Errorf("error code collision with package driver"))
	}
	liberr.RegisterIdFctMessage(ErrorInvalidURI, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorInvalidURI:
		return "driver: malformed connection URI"
	case ErrorUnsupportedScheme:
		return "driver: unsupported URI scheme"
	case ErrorCertificateProviderRequired:
		return "driver: an encrypted scheme requires a TLS-wrapped dialer (WithDialFunc)"
	case ErrorDriverClosed:
		return "driver: driver is closed"
	}

	return liberr.NullMessage
}
