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

package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osiertech/osier-evm/common"
)

// These tests are sanity checks. They should ensure that we don't e.g. use
// Sha3-256 instead of legacy Keccak256.
func TestKeccak256Hash(t *testing.T) {
	msg := []byte("abc")
	exp, _ := hex.DecodeString("4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45")
	h := Keccak256Hash(msg)
	assert.Equal(t, exp, h[:])
	assert.Equal(t, exp, Keccak256(msg))
}

func TestKeccak256EmptyInput(t *testing.T) {
	exp := common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	assert.Equal(t, exp, Keccak256Hash())
	assert.Equal(t, exp, Keccak256Hash(nil))
}

func TestKeccak256MultiPiece(t *testing.T) {
	// hashing the concatenation in pieces must equal hashing it at once
	whole := Keccak256([]byte("hello world"))
	pieces := Keccak256([]byte("hello"), []byte(" "), []byte("world"))
	assert.Equal(t, whole, pieces)
}

func TestHashData(t *testing.T) {
	hasher := NewKeccakState()
	exp, _ := hex.DecodeString("4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45")
	h := HashData(hasher, []byte("abc"))
	assert.Equal(t, exp, h[:])
	// reusing the hasher must reset state
	h = HashData(hasher, []byte("abc"))
	assert.Equal(t, exp, h[:])
}
