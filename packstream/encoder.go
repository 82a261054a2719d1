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
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"sort"

	liberr "github.com/sabouaram/graphbolt/errors"
)

// Dehydrator turns a domain value into a Structure for encoding. Returning
// false means v is not handled by this dehydrator.
type Dehydrator func(v interface{}) (*Structure, bool)

// Encoder writes Values onto an underlying writer using the smallest marker
// that fits each value. Not safe for concurrent use; a Connection owns one.
type Encoder struct {
	w    *bufio.Writer
	deh  []Dehydrator
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Use registers a Dehydrator tried, in registration order, whenever Encode
// receives a Go value that is not already a packstream.Value.
func (e *Encoder) Use(d Dehydrator) {
	e.deh = append(e.deh, d)
}

func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// Encode writes v, dehydrating it first if it is not already a Value.
func (e *Encoder) Encode(v interface{}) liberr.Error {
	val, ok := v.(Value)
	if !ok {
		for _, d := range e.deh {
			if s, handled := d(v); handled {
				val = s
				ok = true
				break
			}
		}
	}
	if !ok {
		return ErrorUnexpectedType.Error()
	}
	return e.encodeValue(val)
}

func (e *Encoder) encodeValue(v Value) liberr.Error {
	switch t := v.(type) {
	case nil:
		return e.writeByte(0xC0)
	case Null:
		return e.writeByte(0xC0)
	case Bool:
		if t {
			return e.writeByte(0xC3)
		}
		return e.writeByte(0xC2)
	case Int64:
		return e.encodeInt(int64(t))
	case Float64:
		if err := e.writeByte(0xC1); err != nil {
			return err
		}
		return e.writeUint64(math.Float64bits(float64(t)))
	case String:
		return e.encodeString(string(t))
	case Bytes:
		return e.encodeBytes(t)
	case List:
		return e.encodeList(t)
	case Map:
		return e.encodeMap(t)
	case *Structure:
		return e.encodeStructure(t)
	default:
		return ErrorUnexpectedType.Error()
	}
}

func (e *Encoder) encodeInt(i int64) liberr.Error {
	switch {
	case i >= -16 && i <= 127:
		return e.writeByte(byte(int8(i)))
	case i >= math.MinInt8 && i <= math.MaxInt8:
		if err := e.writeByte(0xC8); err != nil {
			return err
		}
		return e.writeByte(byte(int8(i)))
	case i >= math.MinInt16 && i <= math.MaxInt16:
		if err := e.writeByte(0xC9); err != nil {
			return err
		}
		return e.writeUint16(uint16(int16(i)))
	case i >= math.MinInt32 && i <= math.MaxInt32:
		if err := e.writeByte(0xCA); err != nil {
			return err
		}
		return e.writeUint32(uint32(int32(i)))
	default:
		if err := e.writeByte(0xCB); err != nil {
			return err
		}
		return e.writeUint64(uint64(i))
	}
}

func (e *Encoder) encodeString(s string) liberr.Error {
	n := len(s)
	switch {
	case n <= 15:
		if err := e.writeByte(0x80 | byte(n)); err != nil {
			return err
		}
	case n <= math.MaxUint8:
		if err := e.writeByte(0xD0); err != nil {
			return err
		}
		if err := e.writeByte(byte(n)); err != nil {
			return err
		}
	case n <= math.MaxUint16:
		if err := e.writeByte(0xD1); err != nil {
			return err
		}
		if err := e.writeUint16(uint16(n)); err != nil {
			return err
		}
	case uint(n) <= math.MaxUint32:
		if err := e.writeByte(0xD2); err != nil {
			return err
		}
		if err := e.writeUint32(uint32(n)); err != nil {
			return err
		}
	default:
		return ErrorLengthOverflow.Error()
	}
	_, er := e.w.WriteString(s)
	return wrapIO(er)
}

func (e *Encoder) encodeBytes(b []byte) liberr.Error {
	n := len(b)
	switch {
	case n <= math.MaxUint8:
		if err := e.writeByte(0xCC); err != nil {
			return err
		}
		if err := e.writeByte(byte(n)); err != nil {
			return err
		}
	case n <= math.MaxUint16:
		if err := e.writeByte(0xCD); err != nil {
			return err
		}
		if err := e.writeUint16(uint16(n)); err != nil {
			return err
		}
	case uint(n) <= math.MaxUint32:
		if err := e.writeByte(0xCE); err != nil {
			return err
		}
		if err := e.writeUint32(uint32(n)); err != nil {
			return err
		}
	default:
		return ErrorLengthOverflow.Error()
	}
	_, er := e.w.Write(b)
	return wrapIO(er)
}

func (e *Encoder) encodeList(l List) liberr.Error {
	n := len(l)
	if err := e.writeContainerHeader(n, 0x90, 0xD4, 0xD5, 0xD6); err != nil {
		return err
	}
	for _, item := range l {
		if err := e.encodeValue(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeMap(m Map) liberr.Error {
	n := len(m)
	if err := e.writeContainerHeader(n, 0xA0, 0xD8, 0xD9, 0xDA); err != nil {
		return err
	}

	keys := make([]string, 0, n)
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := e.encodeString(k); err != nil {
			return err
		}
		if err := e.encodeValue(m[k]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeStructure(s *Structure) liberr.Error {
	n := len(s.Fields)
	if n > 15 {
		return ErrorStructureOverflow.Error()
	}
	if err := e.writeByte(0xB0 | byte(n)); err != nil {
		return err
	}
	if err := e.writeByte(s.Tag); err != nil {
		return err
	}
	for _, f := range s.Fields {
		if err := e.encodeValue(f); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeContainerHeader(n int, tiny, u8, u16, u32 byte) liberr.Error {
	switch {
	case n <= 15:
		return e.writeByte(tiny | byte(n))
	case n <= math.MaxUint8:
		if err := e.writeByte(u8); err != nil {
			return err
		}
		return e.writeByte(byte(n))
	case n <= math.MaxUint16:
		if err := e.writeByte(u16); err != nil {
			return err
		}
		return e.writeUint16(uint16(n))
	case uint(n) <= math.MaxUint32:
		if err := e.writeByte(u32); err != nil {
			return err
		}
		return e.writeUint32(uint32(n))
	default:
		return ErrorLengthOverflow.Error()
	}
}

func (e *Encoder) writeByte(b byte) liberr.Error {
	return wrapIO(e.w.WriteByte(b))
}

func (e *Encoder) writeUint16(v uint16) liberr.Error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := e.w.Write(buf[:])
	return wrapIO(err)
}

func (e *Encoder) writeUint32(v uint32) liberr.Error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := e.w.Write(buf[:])
	return wrapIO(err)
}

func (e *Encoder) writeUint64(v uint64) liberr.Error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := e.w.Write(buf[:])
	return wrapIO(err)
}

func wrapIO(err error) liberr.Error {
	if err == nil {
		return nil
	}
	return ErrorUnexpectedEOF.Error(err)
}
