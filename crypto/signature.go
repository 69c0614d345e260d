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
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/holiman/uint256"
)

// SignatureLength is the byte length of an r||s||v signature.
const SignatureLength = 65

// RecoveryIDOffset points to the recovery id byte within the signature.
const RecoveryIDOffset = 64

var (
	secp256k1N     = uint256.MustFromHex("0xfffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	secp256k1HalfN = new(uint256.Int).Rsh(secp256k1N, 1)
)

// RecoverPubkey returns the uncompressed 65-byte public key that produced
// the given r||s||v signature over the 32-byte hash.
func RecoverPubkey(hash, sig []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash is required to be exactly 32 bytes (%d)", len(hash))
	}
	if len(sig) != SignatureLength {
		return nil, errors.New("signature must be 65 bytes long")
	}
	// the recovery library wants the recovery id first, legacy-offset by 27
	compact := make([]byte, SignatureLength)
	compact[0] = sig[RecoveryIDOffset] + 27
	copy(compact[1:], sig[:RecoveryIDOffset])

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

// ValidateSignatureValues reports whether the signature values are valid for
// recovery. The homestead rule additionally rejects s values in the upper
// half of the group order.
func ValidateSignatureValues(v byte, r, s *uint256.Int, homestead bool) bool {
	if r.IsZero() || s.IsZero() {
		return false
	}
	if homestead && s.Gt(secp256k1HalfN) {
		return false
	}
	// frontier: allow s to be in full N range
	return r.Lt(secp256k1N) && s.Lt(secp256k1N) && (v == 0 || v == 1)
}
