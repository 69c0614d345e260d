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

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToAddressCropsLeft(t *testing.T) {
	t.Parallel()
	in := make([]byte, 25)
	for i := range in {
		in[i] = byte(i + 1)
	}
	a := BytesToAddress(in)
	assert.Equal(t, in[5:], a.Bytes())
}

func TestAddressSetBytesShort(t *testing.T) {
	t.Parallel()
	a := BytesToAddress([]byte{0xde, 0xad})
	want := HexToAddress("0x000000000000000000000000000000000000dead")
	assert.Equal(t, want, a)
}

func TestHashHexRoundTrip(t *testing.T) {
	t.Parallel()
	h := HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
	assert.Equal(t, "0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421", h.Hex())

	var h2 Hash
	require.NoError(t, h2.UnmarshalText([]byte(h.Hex())))
	assert.Equal(t, h, h2)
}

func TestIsHexAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		str string
		exp bool
	}{
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0X5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beae", false},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaedd", false},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.exp, IsHexAddress(tt.str), tt.str)
	}
}

func TestPadBytes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte{0, 0, 1, 2}, LeftPadBytes([]byte{1, 2}, 4))
	assert.Equal(t, []byte{1, 2, 0, 0}, RightPadBytes([]byte{1, 2}, 4))
	// already long enough: returned as is
	assert.Equal(t, []byte{1, 2, 3}, LeftPadBytes([]byte{1, 2, 3}, 2))
}

func TestCopyNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Copy(nil))
	b := []byte{1, 2, 3}
	c := Copy(b)
	c[0] = 9
	assert.Equal(t, byte(1), b[0])
}
