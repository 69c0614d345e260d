// Copyright 2025 The Osier Authors
// This file is part of Osier.
//
// Osier is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Osier is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Osier. If not, see <http://www.gnu.org/licenses/>.

// Package rlp implements the subset of the RLP encoding needed by the
// execution engine: list prefixes, short strings and unsigned integers.
//
// General design:
//   - the package doesn't manage memory, the caller must ensure buffers
//     are big enough
//   - each Encode function writes to the given buffer and returns the
//     written length
//   - functions that calculate prefix lengths are pure and cheap, it is
//     fine to call them multiple times while sizing a buffer
package rlp

import (
	"encoding/binary"
	"math/bits"
)

// ListPrefixLen returns the length of the prefix for a list of dataLen bytes.
func ListPrefixLen(dataLen int) int {
	if dataLen >= 56 {
		return 1 + (bits.Len64(uint64(dataLen))+7)/8
	}
	return 1
}

// EncodeListPrefix writes the list prefix for dataLen payload bytes to the
// beginning of to and returns the number of bytes written.
func EncodeListPrefix(dataLen int, to []byte) int {
	if dataLen >= 56 {
		_ = to[9]
		beLen := (bits.Len64(uint64(dataLen)) + 7) / 8
		binary.BigEndian.PutUint64(to[1:], uint64(dataLen))
		to[8-beLen] = 247 + byte(beLen)
		copy(to, to[8-beLen:9])
		return 1 + beLen
	}
	to[0] = 192 + byte(dataLen)
	return 1
}

// U64Len returns the encoded length of i.
func U64Len(i uint64) int {
	if i >= 128 {
		return 1 + (bits.Len64(i)+7)/8
	}
	return 1
}

// EncodeU64 writes the canonical encoding of i to the beginning of to and
// returns the number of bytes written. Zero encodes as the empty string.
// to needs exactly U64Len(i) bytes.
func EncodeU64(i uint64, to []byte) int {
	if i >= 128 {
		beLen := (bits.Len64(i) + 7) / 8
		_ = to[beLen]
		var be [8]byte
		binary.BigEndian.PutUint64(be[:], i)
		to[0] = 128 + byte(beLen)
		copy(to[1:1+beLen], be[8-beLen:])
		return 1 + beLen
	}
	if i == 0 {
		to[0] = 128
		return 1
	}
	to[0] = byte(i)
	return 1
}

// EncodeAddress writes a 20-byte address as a string item and returns the
// number of bytes written. a must be exactly 20 bytes.
func EncodeAddress(a, to []byte) int {
	_ = to[20]
	to[0] = 128 + 20
	copy(to[1:21], a[:20])
	return 21
}

// EncodeString writes an arbitrary byte string item to the beginning of to
// and returns the number of bytes written.
func EncodeString(s, to []byte) int {
	switch {
	case len(s) == 1 && s[0] < 128:
		to[0] = s[0]
		return 1
	case len(s) < 56:
		_ = to[len(s)]
		to[0] = 128 + byte(len(s))
		copy(to[1:], s)
		return 1 + len(s)
	default:
		beLen := (bits.Len64(uint64(len(s))) + 7) / 8
		_ = to[1+beLen+len(s)-1]
		to[0] = 183 + byte(beLen)
		binary.BigEndian.PutUint64(to[1:9], uint64(len(s)))
		copy(to[1:], to[1+8-beLen:9])
		copy(to[1+beLen:], s)
		return 1 + beLen + len(s)
	}
}

// StringLen returns the encoded length of the string item s.
func StringLen(s []byte) int {
	switch {
	case len(s) == 1 && s[0] < 128:
		return 1
	case len(s) < 56:
		return 1 + len(s)
	default:
		return 1 + (bits.Len64(uint64(len(s)))+7)/8 + len(s)
	}
}
