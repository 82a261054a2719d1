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

	liberr "github.com/sabouaram/graphbolt/errors"
)

// Hydrator turns a decoded Structure into a domain object. Returning false
// leaves the *Structure as-is.
type Hydrator func(tag byte, fields []Value) (interface{}, bool)

// Decoder reads Values from an underlying reader. Not safe for concurrent
// use; a Connection owns one.
type Decoder struct {
	r   *bufio.Reader
	hyd map[byte]Hydrator
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), hyd: make(map[byte]Hydrator)}
}

// Use registers a Hydrator for a structure tag.
func (d *Decoder) Use(tag byte, h Hydrator) {
	d.hyd[tag] = h
}

// Decode reads one complete Value. Structures with a registered Hydrator
// yield the hydrated domain object wrapped nowhere -- callers type-assert
// the returned interface{} against their own domain type or *Structure.
func (d *Decoder) Decode() (interface{}, liberr.Error) {
	marker, er := d.r.ReadByte()
	if er != nil {
		return nil, wrapIO(er)
	}
	return d.decodeMarker(marker)
}

// PeekStructureHeader reads a structure's size and tag without materializing
// its fields, so message dispatch can branch on tag before decoding the body.
// It only succeeds when the next value is a tiny structure (0xB0-0xBF).
func (d *Decoder) PeekStructureHeader() (size int, tag byte, err liberr.Error) {
	marker, er := d.r.ReadByte()
	if er != nil {
		return 0, 0, wrapIO(er)
	}
	if marker < 0xB0 || marker > 0xBF {
		return 0, 0, ErrorUnexpectedType.Error()
	}
	size = int(marker & 0x0F)
	tagByte, er := d.r.ReadByte()
	if er != nil {
		return 0, 0, wrapIO(er)
	}
	return size, tagByte, nil
}

// DecodeStructureFields reads exactly n values, the fields of a structure
// whose header was already consumed via PeekStructureHeader.
func (d *Decoder) DecodeStructureFields(n int) ([]Value, liberr.Error) {
	fields := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.Decode()
		if err != nil {
			return nil, err
		}
		val, ok := v.(Value)
		if !ok {
			val = Null{}
		}
		fields = append(fields, val)
	}
	return fields, nil
}

func (d *Decoder) decodeMarker(marker byte) (interface{}, liberr.Error) {
	switch {
	case marker <= 0x7F:
		return Int64(int8(marker)), nil
	case marker >= 0xF0:
		return Int64(int8(marker)), nil
	case marker == 0xC0:
		return Null{}, nil
	case marker == 0xC1:
		return d.decodeFloat64()
	case marker == 0xC2:
		return Bool(false), nil
	case marker == 0xC3:
		return Bool(true), nil
	case marker == 0xC8:
		return d.decodeInt(1)
	case marker == 0xC9:
		return d.decodeInt(2)
	case marker == 0xCA:
		return d.decodeInt(4)
	case marker == 0xCB:
		return d.decodeInt(8)
	case marker == 0xCC:
		return d.decodeBytes(1)
	case marker == 0xCD:
		return d.decodeBytes(2)
	case marker == 0xCE:
		return d.decodeBytes(4)
	case marker >= 0x80 && marker <= 0x8F:
		return d.decodeString(int(marker & 0x0F))
	case marker == 0xD0:
		return d.decodeStringSized(1)
	case marker == 0xD1:
		return d.decodeStringSized(2)
	case marker == 0xD2:
		return d.decodeStringSized(4)
	case marker >= 0x90 && marker <= 0x9F:
		return d.decodeList(int(marker & 0x0F))
	case marker == 0xD4:
		return d.decodeListSized(1)
	case marker == 0xD5:
		return d.decodeListSized(2)
	case marker == 0xD6:
		return d.decodeListSized(4)
	case marker >= 0xA0 && marker <= 0xAF:
		return d.decodeMap(int(marker & 0x0F))
	case marker == 0xD8:
		return d.decodeMapSized(1)
	case marker == 0xD9:
		return d.decodeMapSized(2)
	case marker == 0xDA:
		return d.decodeMapSized(4)
	case marker >= 0xB0 && marker <= 0xBF:
		return d.decodeStructure(int(marker & 0x0F))
	default:
		return nil, ErrorUnknownMarker.Error()
	}
}

func (d *Decoder) decodeFloat64() (interface{}, liberr.Error) {
	v, err := d.readUint64()
	if err != nil {
		return nil, err
	}
	return Float64(math.Float64frombits(v)), nil
}

func (d *Decoder) decodeInt(size int) (interface{}, liberr.Error) {
	switch size {
	case 1:
		b, er := d.r.ReadByte()
		if er != nil {
			return nil, wrapIO(er)
		}
		return Int64(int8(b)), nil
	case 2:
		v, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		return Int64(int16(v)), nil
	case 4:
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		return Int64(int32(v)), nil
	default:
		v, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return Int64(int64(v)), nil
	}
}

func (d *Decoder) decodeBytes(sizeLen int) (interface{}, liberr.Error) {
	n, err := d.readLength(sizeLen)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, er := io.ReadFull(d.r, buf); er != nil {
		return nil, wrapIO(er)
	}
	return Bytes(buf), nil
}

func (d *Decoder) decodeString(n int) (interface{}, liberr.Error) {
	buf := make([]byte, n)
	if _, er := io.ReadFull(d.r, buf); er != nil {
		return nil, wrapIO(er)
	}
	return String(buf), nil
}

func (d *Decoder) decodeStringSized(sizeLen int) (interface{}, liberr.Error) {
	n, err := d.readLength(sizeLen)
	if err != nil {
		return nil, err
	}
	return d.decodeString(n)
}

func (d *Decoder) decodeList(n int) (interface{}, liberr.Error) {
	l := make(List, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.Decode()
		if err != nil {
			return nil, err
		}
		val, _ := v.(Value)
		l = append(l, val)
	}
	return l, nil
}

func (d *Decoder) decodeListSized(sizeLen int) (interface{}, liberr.Error) {
	n, err := d.readLength(sizeLen)
	if err != nil {
		return nil, err
	}
	return d.decodeList(n)
}

func (d *Decoder) decodeMap(n int) (interface{}, liberr.Error) {
	m := make(Map, n)
	for i := 0; i < n; i++ {
		k, err := d.Decode()
		if err != nil {
			return nil, err
		}
		ks, ok := k.(String)
		if !ok {
			return nil, ErrorNonStringMapKey.Error()
		}
		v, err := d.Decode()
		if err != nil {
			return nil, err
		}
		val, _ := v.(Value)
		m[string(ks)] = val
	}
	return m, nil
}

func (d *Decoder) decodeMapSized(sizeLen int) (interface{}, liberr.Error) {
	n, err := d.readLength(sizeLen)
	if err != nil {
		return nil, err
	}
	return d.decodeMap(n)
}

func (d *Decoder) decodeStructure(n int) (interface{}, liberr.Error) {
	tag, er := d.r.ReadByte()
	if er != nil {
		return nil, wrapIO(er)
	}

	fields := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.Decode()
		if err != nil {
			return nil, err
		}
		val, _ := v.(Value)
		fields = append(fields, val)
	}

	if h, ok := d.hyd[tag]; ok {
		if obj, handled := h(tag, fields); handled {
			return obj, nil
		}
	}

	return &Structure{Tag: tag, Fields: fields}, nil
}

func (d *Decoder) readLength(sizeLen int) (int, liberr.Error) {
	switch sizeLen {
	case 1:
		b, er := d.r.ReadByte()
		if er != nil {
			return 0, wrapIO(er)
		}
		return int(b), nil
	case 2:
		v, err := d.readUint16()
		if err != nil {
			return 0, err
		}
		return int(v), nil
	default:
		v, err := d.readUint32()
		if err != nil {
			return 0, err
		}
		return int(v), nil
	}
}

func (d *Decoder) readUint16() (uint16, liberr.Error) {
	var buf [2]byte
	if _, er := io.ReadFull(d.r, buf[:]); er != nil {
		return 0, wrapIO(er)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (d *Decoder) readUint32() (uint32, liberr.Error) {
	var buf [4]byte
	if _, er := io.ReadFull(d.r, buf[:]); er != nil {
		return 0, wrapIO(er)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (d *Decoder) readUint64() (uint64, liberr.Error) {
	var buf [8]byte
	if _, er := io.ReadFull(d.r, buf[:]); er != nil {
		return 0, wrapIO(er)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
