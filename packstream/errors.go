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

package packstream

import (
	"fmt"

	liberr "github.com/sabouaram/graphbolt/errors"
)

const (
	ErrorUnknownMarker liberr.CodeError = iota + liberr.MinPkgPackstream
	ErrorIntOverflow
	ErrorLengthOverflow
	ErrorStructureOverflow
	ErrorNonStringMapKey
	ErrorUnexpectedEOF
	ErrorUnexpectedType
)

func init() {
	if liberr.ExistInMapMessage(ErrorUnknownMarker) {
		panic(fmt.Errorf("error code collision with package packstream"))
	}
	liberr.RegisterIdFctMessage(ErrorUnknownMarker, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorUnknownMarker:
		return "packstream: unknown marker byte"
	case ErrorIntOverflow:
		return "packstream: integer exceeds 64-bit signed range"
	case ErrorLengthOverflow:
		return "packstream: length exceeds 32-bit encoding"
	case ErrorStructureOverflow:
		return "packstream: structure has more than 15 fields"
	case ErrorNonStringMapKey:
		return "packstream: map keys must be strings"
	case ErrorUnexpectedEOF:
		return "packstream: unexpected end of stream"
	case ErrorUnexpectedType:
		return "packstream: value does not implement packstream.Value"
	}

	return liberr.NullMessage
}
