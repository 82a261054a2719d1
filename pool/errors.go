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

package pool

import (
	"fmt"

	liberr "github.com/sabouaram/graphbolt/errors"
)

const (
	ErrorPoolClosed liberr.CodeError = iota + liberr.MinPkgPool
	ErrorAcquisitionTimeout
	ErrorAcquisitionCanceled
	ErrorDial
	ErrorNoRoutersAvailable
	ErrorNoReadersAvailable
	ErrorNoWritersAvailable
	ErrorHomeDatabaseResolution
)

func init() {
	if liberr.ExistInMapMessage(ErrorPoolClosed) {
		panic(fmt.Errorf("error code collision with package pool"))
	}
	liberr.RegisterIdFctMessage(ErrorPoolClosed, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorPoolClosed:
		return "pool: pool is closed"
	case ErrorAcquisitionTimeout:
		return "pool: connection acquisition timed out"
	case ErrorAcquisitionCanceled:
		return "pool: connection acquisition canceled"
	case ErrorDial:
		return "pool: failed to establish a new connection"
	case ErrorNoRoutersAvailable:
		return "pool: no routers available in the routing table"
	case ErrorNoReadersAvailable:
		return "pool: no readers available in the routing table"
	case ErrorNoWritersAvailable:
		return "pool: no writers available in the routing table"
	case ErrorHomeDatabaseResolution:
		return "pool: failed to resolve the home database"
	}

	return liberr.NullMessage
}
