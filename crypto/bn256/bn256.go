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

// Package bn256 wraps gnark-crypto's bn254 implementation behind the byte
// formats the curve precompiles speak: big-endian affine coordinates with
// the all-zero encoding standing for the point at infinity.
package bn256

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var (
	errInvalidPointSize = errors.New("bn256: invalid point encoding size")
	errInvalidPoint     = errors.New("bn256: point is not on the curve")
)

func isAllZeroes(b []byte) bool {
	for i := 0; i+8 <= len(b); i += 8 {
		if binary.BigEndian.Uint64(b[i:i+8]) != 0 {
			return false
		}
	}
	return true
}

// UnmarshalG1 reads a G1 point from a 64-byte [32-byte X | 32-byte Y] slice.
// The all-zero slice decodes to the point at infinity. Coordinates outside
// the field, points off the curve and points outside the subgroup are
// rejected.
func UnmarshalG1(input []byte, point *bn254.G1Affine) error {
	if len(input) != 64 {
		return errInvalidPointSize
	}
	if isAllZeroes(input) {
		return nil
	}
	if err := point.X.SetBytesCanonical(input[:32]); err != nil {
		return err
	}
	if err := point.Y.SetBytesCanonical(input[32:64]); err != nil {
		return err
	}
	if !point.IsOnCurve() || !point.IsInSubGroup() {
		return errInvalidPoint
	}
	return nil
}

// MarshalG1 appends the 64-byte encoding of point to ret. The point at
// infinity encodes as 64 zero bytes.
func MarshalG1(point *bn254.G1Affine, ret []byte) []byte {
	xBytes := point.X.Bytes()
	yBytes := point.Y.Bytes()
	ret = append(ret, xBytes[:]...)
	ret = append(ret, yBytes[:]...)
	return ret
}

// UnmarshalG2 reads a G2 point from a 128-byte slice laid out as
// [X.A1 | X.A0 | Y.A1 | Y.A0], each coordinate 32 bytes big-endian. The
// all-zero slice decodes to the point at infinity.
func UnmarshalG2(input []byte, point *bn254.G2Affine) error {
	if len(input) != 128 {
		return errInvalidPointSize
	}
	if isAllZeroes(input) {
		return nil
	}
	if err := point.X.A1.SetBytesCanonical(input[:32]); err != nil {
		return err
	}
	if err := point.X.A0.SetBytesCanonical(input[32:64]); err != nil {
		return err
	}
	if err := point.Y.A1.SetBytesCanonical(input[64:96]); err != nil {
		return err
	}
	if err := point.Y.A0.SetBytesCanonical(input[96:128]); err != nil {
		return err
	}
	if !point.IsOnCurve() || !point.IsInSubGroup() {
		return errInvalidPoint
	}
	return nil
}

// Add sets ret to a + b in G1.
func Add(a, b *bn254.G1Affine) *bn254.G1Affine {
	var p bn254.G1Jac
	p.FromAffine(a)
	p.AddMixed(b)
	ret := new(bn254.G1Affine)
	ret.FromJacobian(&p)
	return ret
}

// ScalarMul sets ret to scalar * a in G1. The scalar is interpreted as a
// 32-byte big-endian integer, reduced mod the group order.
func ScalarMul(a *bn254.G1Affine, scalar []byte) *bn254.G1Affine {
	var s fr.Element
	s.SetBytes(scalar)
	ret := new(bn254.G1Affine)
	ret.ScalarMultiplication(a, s.BigInt(new(big.Int)))
	return ret
}

// PairingCheck reports whether the product of the pairings of the given
// point pairs equals one. Empty input is vacuously true.
func PairingCheck(g1s []bn254.G1Affine, g2s []bn254.G2Affine) (bool, error) {
	return bn254.PairingCheck(g1s, g2s)
}
