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

// Package packstream implements the binary value codec: a closed set of
// scalar and composite value types, plus tagged Structures whose fields are
// opaque to this package. Callers register Hydrator/Dehydrator functions to
// map Structures onto their own domain types.
package packstream

// Value is the closed sum type every encodable/decodable value satisfies.
// Concrete types: Null, Bool, Int64, Float64, String, Bytes, List, Map, *Structure.
type Value interface {
	isValue()
}

type Null struct{}

func (Null) isValue() {}

type Bool bool

func (Bool) isValue() {}

type Int64 int64

func (Int64) isValue() {}

type Float64 float64

func (Float64) isValue() {}

type String string

func (String) isValue() {}

type Bytes []byte

func (Bytes) isValue() {}

type List []Value

func (List) isValue() {}

// Map keys MUST be strings per the wire format; order is not significant.
type Map map[string]Value

func (Map) isValue() {}

// Structure is a tagged, fixed-arity value: one tag byte plus up to 15 fields.
// Decode() leaves unregistered tags as a *Structure; when a registered
// Hydrator handles a tag, Decode returns its domain object in place of the
// *Structure.
type Structure struct {
	Tag    byte
	Fields []Value
}

func (*Structure) isValue() {}

// NewStructure builds a Structure, panicking if it would overflow the
// tiny-structure encoding (more than 15 fields) -- callers construct these
// only from already-bounded domain models, so this is a programmer error.
func NewStructure(tag byte, fields ...Value) *Structure {
	if len(fields) > 15 {
		panic("packstream: structure field count exceeds tiny-structure encoding")
	}
	return &Structure{Tag: tag, Fields: fields}
}
