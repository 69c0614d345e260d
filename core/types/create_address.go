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

package types

import (
	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/crypto"
	"github.com/osiertech/osier-evm/rlp"
)

// CreateAddress derives the contract address for a legacy create:
// the last 20 bytes of keccak256(rlp([sender, nonce])), with the sender's
// nonce taken before its increment.
func CreateAddress(a common.Address, nonce uint64) common.Address {
	listLen := 21 + rlp.U64Len(nonce)
	data := make([]byte, listLen+1)
	pos := rlp.EncodeListPrefix(listLen, data)
	pos += rlp.EncodeAddress(a[:], data[pos:])
	rlp.EncodeU64(nonce, data[pos:])
	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}

// CreateAddress2 derives the contract address for a salted create:
// the last 20 bytes of keccak256(0xff ++ sender ++ salt ++ keccak256(initCode)).
func CreateAddress2(b common.Address, salt [32]byte, inithash []byte) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte{0xff}, b.Bytes(), salt[:], inithash)[12:])
}
