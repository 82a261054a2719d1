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

// Package chunk implements the length-prefixed chunk framing every bolt
// message is wrapped in: chunk := u16_be length || payload, message :=
// chunk+ || 0x00 0x00. A zero-length chunk that arrives before a message's
// first payload chunk is a keep-alive (NOOP) and is skipped on receive; one
// that follows payload ends the message.
package chunk

import (
	"encoding/binary"
	"io"

	liberr "github.com/sabouaram/graphbolt/errors"
)

// MaxChunkSize is the largest payload an encoder will put in a single chunk.
const MaxChunkSize = 16384

// MaxMessageSize bounds how much a Reader will accumulate for one message,
// guarding against a misbehaving peer holding the connection open forever.
const MaxMessageSize = 16 * 1024 * 1024

// Writer buffers one encoded message and splits it into chunks on Flush.
// Not safe for concurrent use.
type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Flush splits the buffered message into MaxChunkSize chunks, writes them
// followed by the 0x0000 terminator, and resets the buffer.
func (w *Writer) Flush() liberr.Error {
	defer func() { w.buf = w.buf[:0] }()

	rest := w.buf
	for len(rest) > 0 {
		n := len(rest)
		if n > MaxChunkSize {
			n = MaxChunkSize
		}
		if err := w.writeChunk(rest[:n]); err != nil {
			return err
		}
		rest = rest[n:]
	}

	return w.writeChunk(nil)
}

func (w *Writer) writeChunk(payload []byte) liberr.Error {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(payload)))

	if _, err := w.w.Write(hdr[:]); err != nil {
		return ErrorShortWrite.Error(err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.w.Write(payload); err != nil {
		return ErrorShortWrite.Error(err)
	}
	return nil
}

// Reader reassembles one logical message per ReadMessage call, transparently
// skipping zero-length NOOP chunks that precede the message's payload.
type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadMessage blocks until a full message (terminated by a zero-length
// chunk) has been read, returning its reassembled payload.
func (r *Reader) ReadMessage() ([]byte, liberr.Error) {
	var msg []byte

	for {
		var hdr [2]byte
		if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
			return nil, ErrorShortRead.Error(err)
		}

		n := binary.BigEndian.Uint16(hdr[:])
		if n == 0 {
			if len(msg) == 0 {
				// NOOP keep-alive chunk before any payload: not end of message.
				continue
			}
			return msg, nil
		}

		if len(msg)+int(n) > MaxMessageSize {
			return nil, ErrorMessageTooLarge.Error()
		}

		chunk := make([]byte, n)
		if _, err := io.ReadFull(r.r, chunk); err != nil {
			return nil, ErrorShortRead.Error(err)
		}
		msg = append(msg, chunk...)
	}
}
