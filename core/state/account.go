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

package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/common/empty"
)

// Account is the ledger representation of one account. Storage lives in its
// own table under the account's address prefix; code is keyed by CodeHash.
type Account struct {
	Nonce    uint64
	Balance  uint256.Int
	CodeHash common.Hash
}

// NewEmptyAccount returns an account with zero nonce, zero balance and the
// empty code hash.
func NewEmptyAccount() Account {
	return Account{CodeHash: empty.CodeHash}
}

// IsEmpty reports whether the account has zero nonce, zero balance and no
// code. Empty touched accounts are dropped when the root frame commits.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && (a.CodeHash.IsZero() || a.CodeHash == empty.CodeHash)
}

// HasCode reports whether the account has contract code installed.
func (a *Account) HasCode() bool {
	return !a.CodeHash.IsZero() && a.CodeHash != empty.CodeHash
}

// Account storage encoding: one fieldset byte, then the present fields,
// each as a length byte followed by that many big-endian bytes with leading
// zeroes stripped. Absent fields are zero (CodeHash absent means the empty
// code hash).
const (
	fieldNonce    = 1
	fieldBalance  = 2
	fieldCodeHash = 4
)

// EncodingLength returns the serialized size of the account.
func (a *Account) EncodingLength() int {
	length := 1
	if a.Nonce > 0 {
		length += 1 + nonZeroBytes(a.Nonce)
	}
	if !a.Balance.IsZero() {
		length += 1 + a.Balance.ByteLen()
	}
	if a.HasCode() {
		length += 1 + 32
	}
	return length
}

// EncodeForStorage serializes the account into buf, which must be at least
// EncodingLength bytes long.
func (a *Account) EncodeForStorage(buf []byte) {
	var fieldSet byte
	pos := 1
	if a.Nonce > 0 {
		fieldSet |= fieldNonce
		n := nonZeroBytes(a.Nonce)
		buf[pos] = byte(n)
		putUintN(buf[pos+1:pos+1+n], a.Nonce, n)
		pos += 1 + n
	}
	if !a.Balance.IsZero() {
		fieldSet |= fieldBalance
		b := a.Balance.Bytes()
		buf[pos] = byte(len(b))
		copy(buf[pos+1:], b)
		pos += 1 + len(b)
	}
	if a.HasCode() {
		fieldSet |= fieldCodeHash
		buf[pos] = 32
		copy(buf[pos+1:pos+33], a.CodeHash[:])
	}
	buf[0] = fieldSet
}

// DecodeForStorage deserializes the account from enc.
func (a *Account) DecodeForStorage(enc []byte) error {
	a.Nonce = 0
	a.Balance.Clear()
	a.CodeHash = empty.CodeHash
	if len(enc) == 0 {
		return nil
	}

	fieldSet := enc[0]
	pos := 1
	if fieldSet&fieldNonce > 0 {
		decodeLength := int(enc[pos])
		if len(enc) < pos+decodeLength+1 {
			return fmt.Errorf("malformed account: nonce len %d, only %d bytes left", decodeLength, len(enc)-pos-1)
		}
		var nonce uint64
		for _, b := range enc[pos+1 : pos+decodeLength+1] {
			nonce = nonce<<8 | uint64(b)
		}
		a.Nonce = nonce
		pos += decodeLength + 1
	}
	if fieldSet&fieldBalance > 0 {
		decodeLength := int(enc[pos])
		if len(enc) < pos+decodeLength+1 {
			return fmt.Errorf("malformed account: balance len %d, only %d bytes left", decodeLength, len(enc)-pos-1)
		}
		a.Balance.SetBytes(enc[pos+1 : pos+decodeLength+1])
		pos += decodeLength + 1
	}
	if fieldSet&fieldCodeHash > 0 {
		decodeLength := int(enc[pos])
		if decodeLength != 32 {
			return fmt.Errorf("malformed account: code hash len %d, want 32", decodeLength)
		}
		if len(enc) < pos+decodeLength+1 {
			return fmt.Errorf("malformed account: code hash truncated, only %d bytes left", len(enc)-pos-1)
		}
		a.CodeHash.SetBytes(enc[pos+1 : pos+decodeLength+1])
	}
	return nil
}

func nonZeroBytes(x uint64) int {
	n := 0
	for x > 0 {
		x >>= 8
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

func putUintN(buf []byte, x uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(x)
		x >>= 8
	}
}
