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

package driver_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/graphbolt/driver"
)

var _ = Describe("ParseScheme", func() {
	It("parses a direct bolt target with an explicit port", func() {
		scheme, addr, err := driver.ParseScheme("bolt://db1.internal:7687")
		Expect(err).To(BeNil())
		Expect(scheme).To(Equal(driver.SchemeBolt))
		Expect(addr.Host).To(Equal("db1.internal"))
		Expect(addr.Port).To(Equal("7687"))
	})

	It("defaults the port to 7687 when omitted", func() {
		_, addr, err := driver.ParseScheme("neo4j://cluster.internal")
		Expect(err).To(BeNil())
		Expect(addr.Port).To(Equal("7687"))
	})

	It("rejects an unknown scheme", func() {
		_, _, err := driver.ParseScheme("http://db1.internal:7687")
		Expect(err).NotTo(BeNil())
	})

	It("rejects a URI carrying a path or query string", func() {
		_, _, err := driver.ParseScheme("bolt://db1.internal:7687/neo4j?x=1")
		Expect(err).NotTo(BeNil())
	})

	It("rejects a URI with no scheme separator", func() {
		_, _, err := driver.ParseScheme("db1.internal:7687")
		Expect(err).NotTo(BeNil())
	})
})
