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

package bolt_test

import (
	"bytes"
	"context"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/graphbolt/bolt"
	"github.com/sabouaram/graphbolt/chunk"
	"github.com/sabouaram/graphbolt/packstream"
)

// serverReadMessage reads one chunk-framed packstream structure off the
// server side of a net.Pipe, returning its tag.
func serverReadMessage(conn net.Conn) *packstream.Structure {
	r := chunk.NewReader(conn)
	raw, err := r.ReadMessage()
	Expect(err).To(BeNil())

	dec := packstream.NewDecoder(bytes.NewReader(raw))
	v, derr := dec.Decode()
	Expect(derr).To(BeNil())
	s, ok := v.(*packstream.Structure)
	Expect(ok).To(BeTrue())
	return s
}

func serverWriteStructure(conn net.Conn, s *packstream.Structure) {
	w := chunk.NewWriter(conn)
	enc := packstream.NewEncoder(w)
	Expect(enc.Encode(s)).To(BeNil())
	Expect(enc.Flush()).To(Succeed())
	Expect(w.Flush()).To(Succeed())
}

func serverHandshake(conn net.Conn, major, minor byte) {
	offer := make([]byte, 20)
	_, err := readFull(conn, offer)
	Expect(err).To(BeNil())
	_, err = conn.Write([]byte{0, 0, minor, major})
	Expect(err).To(BeNil())
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

var _ = Describe("Connection", func() {
	It("completes the handshake and negotiates a version", func() {
		client, server := net.Pipe()
		done := make(chan struct{})

		go func() {
			defer close(done)
			serverHandshake(server, 5, 4)
		}()

		conn, err := bolt.NewConnection(context.Background(), client, bolt.NewAddress("localhost", "7687", "127.0.0.1"), nil)
		<-done
		Expect(err).To(BeNil())
		Expect(conn.Version().Major).To(Equal(byte(5)))
		Expect(conn.Version().Minor).To(Equal(byte(4)))
		Expect(conn.TelemetryEnabled()).To(BeTrue())
		Expect(conn.State()).To(Equal(bolt.StateConnected))
	})

	It("drives HELLO+LOGON to Ready on a v5.4 server", func() {
		client, server := net.Pipe()
		done := make(chan struct{})

		go func() {
			defer close(done)
			serverHandshake(server, 5, 4)

			hello := serverReadMessage(server)
			Expect(hello.Tag).To(Equal(bolt.TagHello))
			serverWriteStructure(server, packstream.NewStructure(bolt.TagSuccess, packstream.Map{"server": packstream.String("neo4j/5.4")}))

			logon := serverReadMessage(server)
			Expect(logon.Tag).To(Equal(bolt.TagLogon))
			serverWriteStructure(server, packstream.NewStructure(bolt.TagSuccess, packstream.Map{}))
		}()

		conn, err := bolt.NewConnection(context.Background(), client, bolt.NewAddress("localhost", "7687", "127.0.0.1"), nil)
		Expect(err).To(BeNil())

		herr := conn.HelloAndLogon(packstream.Map{"user_agent": packstream.String("graphbolt/1.0")}, packstream.Map{"scheme": packstream.String("basic")})
		<-done
		Expect(herr).To(BeNil())
		Expect(conn.State()).To(Equal(bolt.StateReady))
	})

	It("moves to Failed and returns an error on a server FAILURE", func() {
		client, server := net.Pipe()
		done := make(chan struct{})

		go func() {
			defer close(done)
			serverHandshake(server, 5, 4)

			hello := serverReadMessage(server)
			Expect(hello.Tag).To(Equal(bolt.TagHello))
			serverWriteStructure(server, packstream.NewStructure(bolt.TagFailure, packstream.Map{
				"code":    packstream.String("Neo.ClientError.Security.Unauthorized"),
				"message": packstream.String("bad credentials"),
			}))
		}()

		conn, err := bolt.NewConnection(context.Background(), client, bolt.NewAddress("localhost", "7687", "127.0.0.1"), nil)
		Expect(err).To(BeNil())

		herr := conn.HelloAndLogon(packstream.Map{}, packstream.Map{})
		<-done
		Expect(herr).ToNot(BeNil())
		Expect(conn.State()).To(Equal(bolt.StateFailed))
	})

	It("surfaces a transport failure during COMMIT as IncompleteCommit", func() {
		client, server := net.Pipe()
		done := make(chan struct{})

		go func() {
			defer close(done)
			serverHandshake(server, 5, 4)

			hello := serverReadMessage(server)
			Expect(hello.Tag).To(Equal(bolt.TagHello))
			serverWriteStructure(server, packstream.NewStructure(bolt.TagSuccess, packstream.Map{"server": packstream.String("neo4j/5.4")}))

			logon := serverReadMessage(server)
			Expect(logon.Tag).To(Equal(bolt.TagLogon))
			serverWriteStructure(server, packstream.NewStructure(bolt.TagSuccess, packstream.Map{}))

			begin := serverReadMessage(server)
			Expect(begin.Tag).To(Equal(bolt.TagBegin))
			serverWriteStructure(server, packstream.NewStructure(bolt.TagSuccess, packstream.Map{}))

			commit := serverReadMessage(server)
			Expect(commit.Tag).To(Equal(bolt.TagCommit))
			_ = server.Close()
		}()

		conn, err := bolt.NewConnection(context.Background(), client, bolt.NewAddress("localhost", "7687", "127.0.0.1"), nil)
		Expect(err).To(BeNil())
		Expect(conn.HelloAndLogon(packstream.Map{}, packstream.Map{})).To(BeNil())
		Expect(conn.BeginSync(packstream.Map{})).To(BeNil())

		_, cerr := conn.CommitSync()
		<-done
		Expect(cerr).ToNot(BeNil())
		Expect(cerr.GetCode()).To(Equal(bolt.ErrorIncompleteCommit))
	})
})
