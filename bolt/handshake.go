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

package bolt

import "fmt"

// Magic is the 4-byte preamble sent before any version proposal.
var Magic = [4]byte{0x60, 0x60, 0xB0, 0x17}

// Version is a protocol version the driver can speak.
type Version struct {
	Major byte
	Minor byte
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func (v Version) Uint16() uint16 {
	return uint16(v.Major)<<8 | uint16(v.Minor)
}

// SupportedVersions lists every protocol version this driver speaks, newest
// first; contiguous minors under the same major are compacted into a single
// handshake range proposal by proposedRanges.
var SupportedVersions = []Version{
	{Major: 5, Minor: 6},
	{Major: 5, Minor: 5},
	{Major: 5, Minor: 4},
	{Major: 5, Minor: 3},
	{Major: 5, Minor: 2},
	{Major: 5, Minor: 1},
	{Major: 5, Minor: 0},
	{Major: 4, Minor: 4},
	{Major: 4, Minor: 3},
	{Major: 4, Minor: 2},
	{Major: 4, Minor: 1},
	{Major: 3, Minor: 0},
}

// versionRange is a contiguous run of minors under one major, high minor
// first: {major, highMinor, span} where span = highMinor - lowMinor.
type versionRange struct {
	major     byte
	highMinor byte
	span      byte
}

// proposedRanges compacts SupportedVersions (already newest-first) into at
// most 4 contiguous-minor ranges, the most the 20-byte handshake has room
// for.
func proposedRanges() []versionRange {
	var ranges []versionRange

	for _, v := range SupportedVersions {
		if len(ranges) > 0 {
			last := &ranges[len(ranges)-1]
			if last.major == v.Major && last.highMinor-last.span == v.Minor+1 {
				last.span++
				continue
			}
		}
		ranges = append(ranges, versionRange{major: v.Major, highMinor: v.Minor, span: 0})
	}

	if len(ranges) > 4 {
		ranges = ranges[:4]
	}
	return ranges
}

// Handshake builds the 20-byte offer: the magic preamble followed by four
// 4-byte version proposals (00 00 minor_range major), zero-padded if fewer
// than 4 ranges are proposed. Pure function, no I/O.
func Handshake() []byte {
	offer := make([]byte, 0, 20)
	offer = append(offer, Magic[:]...)

	ranges := proposedRanges()
	for i := 0; i < 4; i++ {
		if i < len(ranges) {
			r := ranges[i]
			offer = append(offer, 0x00, 0x00, r.span, r.major)
		} else {
			offer = append(offer, 0x00, 0x00, 0x00, 0x00)
		}
	}

	return offer
}

// ParseAgreedVersion decodes the server's 4-byte response. A response of
// all zero bytes means the server rejected every proposal.
func ParseAgreedVersion(resp [4]byte) (Version, bool) {
	major := resp[3]
	minor := resp[2]
	if major == 0 && minor == 0 {
		return Version{}, false
	}
	return Version{Major: major, Minor: minor}, true
}
