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

package vm

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/core/tracing"
	"github.com/osiertech/osier-evm/crypto"
	"github.com/osiertech/osier-evm/crypto/blake2b"
	"github.com/osiertech/osier-evm/crypto/bn256"
	"github.com/osiertech/osier-evm/params"
)

// PrecompiledContract is a native contract reachable at a fixed address.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// PrecompiledContracts is the default precompile set: the standard contracts
// at 0x01..0x09 plus the extended set at 0x80..0x82.
var PrecompiledContracts = map[common.Address]PrecompiledContract{
	common.BytesToAddress([]byte{0x01}): &ecrecover{},
	common.BytesToAddress([]byte{0x02}): &sha256hash{},
	common.BytesToAddress([]byte{0x03}): &ripemd160hash{},
	common.BytesToAddress([]byte{0x04}): &dataCopy{},
	common.BytesToAddress([]byte{0x05}): &bigModExp{},
	common.BytesToAddress([]byte{0x06}): &bn256Add{},
	common.BytesToAddress([]byte{0x07}): &bn256ScalarMul{},
	common.BytesToAddress([]byte{0x08}): &bn256Pairing{},
	common.BytesToAddress([]byte{0x09}): &blake2F{},
	common.BytesToAddress([]byte{0x80}): &ecrecoverPublicKey{},
	common.BytesToAddress([]byte{0x81}): &sha3fips{bits: 256},
	common.BytesToAddress([]byte{0x82}): &sha3fips{bits: 512},
}

// RunPrecompiledContract charges the required gas against gm and executes
// the precompile. A failed precompile leaves the charge in place; the frame
// resolution then burns the rest of the forwarded gas.
func RunPrecompiledContract(p PrecompiledContract, input []byte, gm *Gasometer, hooks *tracing.Hooks) ([]byte, error) {
	gasCost := p.RequiredGas(input)
	if err := gm.RecordCost(gasCost); err != nil {
		return nil, err
	}
	if hooks != nil && hooks.OnGasChange != nil {
		hooks.OnGasChange(gm.Remaining()+gasCost, gm.Remaining(), tracing.GasChangeCallPrecompiledContract)
	}
	return p.Run(input)
}

// getData returns a size-length slice of data starting at offset, zero
// padded past the end of data.
func getData(data []byte, offset, size uint64) []byte {
	length := uint64(len(data))
	if offset > length {
		offset = length
	}
	end := offset + size
	if end > length {
		end = length
	}
	return common.RightPadBytes(data[offset:end], int(size))
}

// linearGas is the base+perWord cost shared by the hashing precompiles.
func linearGas(inputLen int, base, perWord uint64) uint64 {
	return uint64(inputLen+31)/32*perWord + base
}

// ecrecover implements the signature recovery contract at 0x01.
type ecrecover struct{}

func (c *ecrecover) RequiredGas(input []byte) uint64 {
	return params.EcrecoverGas
}

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	const ecRecoverInputLength = 128

	input = common.RightPadBytes(input, ecRecoverInputLength)
	// v is a 32-byte big-endian 27 or 28; anything else yields no output
	v := input[63] - 27
	if !common.AllZero(input[32:63]) || (v != 0 && v != 1) {
		return nil, nil
	}
	r := new(uint256.Int).SetBytes(input[64:96])
	s := new(uint256.Int).SetBytes(input[96:128])
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return nil, nil
	}
	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v

	pubKey, err := crypto.RecoverPubkey(input[:32], sig)
	if err != nil {
		return nil, nil
	}
	// address is the last 20 bytes of the keccak of the raw point
	return common.LeftPadBytes(crypto.Keccak256(pubKey[1:])[12:], 32), nil
}

// sha256hash implements the SHA-256 contract at 0x02.
type sha256hash struct{}

func (c *sha256hash) RequiredGas(input []byte) uint64 {
	return linearGas(len(input), params.Sha256BaseGas, params.Sha256PerWordGas)
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// ripemd160hash implements the RIPEMD-160 contract at 0x03.
type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 {
	return linearGas(len(input), params.Ripemd160BaseGas, params.Ripemd160PerWordGas)
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	ripemd := ripemd160.New()
	ripemd.Write(input)
	return common.LeftPadBytes(ripemd.Sum(nil), 32), nil
}

// dataCopy implements the identity contract at 0x04.
type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 {
	return linearGas(len(input), params.IdentityBaseGas, params.IdentityPerWordGas)
}

func (c *dataCopy) Run(input []byte) ([]byte, error) {
	return common.Copy(input), nil
}

// bigModExp implements the modular exponentiation contract at 0x05 with the
// EIP-2565 pricing.
type bigModExp struct{}

var (
	big1  = big.NewInt(1)
	big7  = big.NewInt(7)
	big32 = big.NewInt(32)
)

// multComplexity approximates the cost of the multiplication inside the
// exponentiation loop: ceil(x/8)^2 where x is the larger operand length.
func multComplexity(x *big.Int) *big.Int {
	x.Add(x, big7)
	x.Rsh(x, 3)
	return x.Mul(x, x)
}

func (c *bigModExp) RequiredGas(input []byte) uint64 {
	var (
		baseLen = new(big.Int).SetBytes(getData(input, 0, 32))
		expLen  = new(big.Int).SetBytes(getData(input, 32, 32))
		modLen  = new(big.Int).SetBytes(getData(input, 64, 32))
	)
	if len(input) > 96 {
		input = input[96:]
	} else {
		input = input[:0]
	}
	// the head of the exponent decides the adjusted exponent length
	var expHead *big.Int
	if big.NewInt(int64(len(input))).Cmp(baseLen) <= 0 {
		expHead = new(big.Int)
	} else {
		if expLen.Cmp(big32) > 0 {
			expHead = new(big.Int).SetBytes(getData(input, baseLen.Uint64(), 32))
		} else {
			expHead = new(big.Int).SetBytes(getData(input, baseLen.Uint64(), expLen.Uint64()))
		}
	}
	msb := 0
	if bitlen := expHead.BitLen(); bitlen > 0 {
		msb = bitlen - 1
	}
	adjExpLen := new(big.Int)
	if expLen.Cmp(big32) > 0 {
		adjExpLen.Sub(expLen, big32)
		adjExpLen.Mul(big.NewInt(8), adjExpLen)
	}
	adjExpLen.Add(adjExpLen, big.NewInt(int64(msb)))
	if adjExpLen.Cmp(big1) < 0 {
		adjExpLen.Set(big1)
	}

	gas := new(big.Int)
	if modLen.Cmp(baseLen) > 0 {
		gas.Set(modLen)
	} else {
		gas.Set(baseLen)
	}
	gas = multComplexity(gas)
	gas.Mul(gas, adjExpLen)
	gas.Div(gas, new(big.Int).SetUint64(params.ModExpQuadCoeffDiv))

	if gas.BitLen() > 64 {
		return math.MaxUint64
	}
	if gas.Uint64() < params.ModExpMinGas {
		return params.ModExpMinGas
	}
	return gas.Uint64()
}

func (c *bigModExp) Run(input []byte) ([]byte, error) {
	var (
		baseLen = new(big.Int).SetBytes(getData(input, 0, 32)).Uint64()
		expLen  = new(big.Int).SetBytes(getData(input, 32, 32)).Uint64()
		modLen  = new(big.Int).SetBytes(getData(input, 64, 32)).Uint64()
	)
	if len(input) > 96 {
		input = input[96:]
	} else {
		input = input[:0]
	}
	// trivial modulus, empty output of the requested width
	if baseLen == 0 && modLen == 0 {
		return []byte{}, nil
	}
	var (
		base = new(big.Int).SetBytes(getData(input, 0, baseLen))
		exp  = new(big.Int).SetBytes(getData(input, baseLen, expLen))
		mod  = new(big.Int).SetBytes(getData(input, baseLen+expLen, modLen))
	)
	if mod.BitLen() == 0 {
		return common.LeftPadBytes([]byte{}, int(modLen)), nil
	}
	return common.LeftPadBytes(base.Exp(base, exp, mod).Bytes(), int(modLen)), nil
}

// bn256Add implements curve point addition on alt_bn128 at 0x06.
type bn256Add struct{}

func (c *bn256Add) RequiredGas(input []byte) uint64 {
	return params.Bn256AddGas
}

func (c *bn256Add) Run(input []byte) ([]byte, error) {
	var p1, p2 bn254.G1Affine
	if err := bn256.UnmarshalG1(getData(input, 0, 64), &p1); err != nil {
		return nil, err
	}
	if err := bn256.UnmarshalG1(getData(input, 64, 64), &p2); err != nil {
		return nil, err
	}
	return bn256.MarshalG1(bn256.Add(&p1, &p2), nil), nil
}

// bn256ScalarMul implements curve scalar multiplication on alt_bn128 at 0x07.
type bn256ScalarMul struct{}

func (c *bn256ScalarMul) RequiredGas(input []byte) uint64 {
	return params.Bn256ScalarMulGas
}

func (c *bn256ScalarMul) Run(input []byte) ([]byte, error) {
	var p bn254.G1Affine
	if err := bn256.UnmarshalG1(getData(input, 0, 64), &p); err != nil {
		return nil, err
	}
	return bn256.MarshalG1(bn256.ScalarMul(&p, getData(input, 64, 32)), nil), nil
}

var (
	// true32Byte is returned when a pairing check succeeds.
	true32Byte = []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}

	// false32Byte is returned when a pairing check fails.
	false32Byte = make([]byte, 32)

	errBadPairingInput = errors.New("bad elliptic curve pairing size")
)

// bn256Pairing implements the optimal ate pairing check at 0x08.
type bn256Pairing struct{}

func (c *bn256Pairing) RequiredGas(input []byte) uint64 {
	return params.Bn256PairingBaseGas + uint64(len(input)/192)*params.Bn256PairingPerPointGas
}

func (c *bn256Pairing) Run(input []byte) ([]byte, error) {
	if len(input)%192 > 0 {
		return nil, errBadPairingInput
	}
	var (
		g1s []bn254.G1Affine
		g2s []bn254.G2Affine
	)
	for i := 0; i < len(input); i += 192 {
		var p1 bn254.G1Affine
		var p2 bn254.G2Affine
		if err := bn256.UnmarshalG1(input[i:i+64], &p1); err != nil {
			return nil, err
		}
		if err := bn256.UnmarshalG2(input[i+64:i+192], &p2); err != nil {
			return nil, err
		}
		// pairs with a point at infinity contribute the identity
		if p1.IsInfinity() || p2.IsInfinity() {
			continue
		}
		g1s = append(g1s, p1)
		g2s = append(g2s, p2)
	}
	// an empty product is the identity; gnark rejects empty slices
	if len(g1s) == 0 {
		return true32Byte, nil
	}
	ok, err := bn256.PairingCheck(g1s, g2s)
	if err != nil {
		return nil, err
	}
	if ok {
		return true32Byte, nil
	}
	return false32Byte, nil
}

// blake2F implements the BLAKE2b compression function at 0x09.
type blake2F struct{}

const blake2FInputLength = 213

var (
	errBlake2FInvalidInputLength = errors.New("invalid input length")
	errBlake2FInvalidFinalFlag   = errors.New("invalid final flag")
)

func (c *blake2F) RequiredGas(input []byte) uint64 {
	// the price is the rounds count, encoded big-endian in the first 4 bytes
	if len(input) != blake2FInputLength {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(input[0:4])) * params.Blake2FPerRoundGas
}

func (c *blake2F) Run(input []byte) ([]byte, error) {
	if len(input) != blake2FInputLength {
		return nil, errBlake2FInvalidInputLength
	}
	if input[212] != 0 && input[212] != 1 {
		return nil, errBlake2FInvalidFinalFlag
	}

	rounds := binary.BigEndian.Uint32(input[0:4])
	final := input[212] == 1

	var (
		h [8]uint64
		m [16]uint64
		t [2]uint64
	)
	for i := 0; i < 8; i++ {
		offset := 4 + i*8
		h[i] = binary.LittleEndian.Uint64(input[offset : offset+8])
	}
	for i := 0; i < 16; i++ {
		offset := 68 + i*8
		m[i] = binary.LittleEndian.Uint64(input[offset : offset+8])
	}
	t[0] = binary.LittleEndian.Uint64(input[196:204])
	t[1] = binary.LittleEndian.Uint64(input[204:212])

	blake2b.F(&h, m, t, final, rounds)

	output := make([]byte, 64)
	for i := 0; i < 8; i++ {
		offset := i * 8
		binary.LittleEndian.PutUint64(output[offset:offset+8], h[i])
	}
	return output, nil
}

// ecrecoverPublicKey recovers the full uncompressed public key instead of
// the derived address. Extended contract at 0x80.
type ecrecoverPublicKey struct{}

func (c *ecrecoverPublicKey) RequiredGas(input []byte) uint64 {
	return params.EcrecoverGas
}

func (c *ecrecoverPublicKey) Run(input []byte) ([]byte, error) {
	input = common.RightPadBytes(input, 128)
	v := input[63] - 27
	if !common.AllZero(input[32:63]) || (v != 0 && v != 1) {
		return nil, errors.New("invalid signature recovery id")
	}
	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v

	pubKey, err := crypto.RecoverPubkey(input[:32], sig)
	if err != nil {
		return nil, err
	}
	// strip the 0x04 point marker
	return pubKey[1:], nil
}

// sha3fips implements the FIPS-202 SHA3 variants at 0x81 (256) and 0x82 (512).
type sha3fips struct {
	bits int
}

func (c *sha3fips) RequiredGas(input []byte) uint64 {
	return linearGas(len(input), params.Sha3FIPSBaseGas, params.Sha3FIPSPerWordGas)
}

func (c *sha3fips) Run(input []byte) ([]byte, error) {
	switch c.bits {
	case 512:
		h := sha3.Sum512(input)
		return h[:], nil
	default:
		h := sha3.Sum256(input)
		return h[:], nil
	}
}
