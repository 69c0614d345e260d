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

// Package params holds the protocol gas constants of the execution engine.
package params

const (
	// CallCreateDepth is the maximum depth of the call/create stack.
	CallCreateDepth uint64 = 1024

	// CallStipend is the free gas given to the callee at the beginning of a
	// value-bearing call.
	CallStipend uint64 = 2300

	// CreateDataGas is charged per byte of code persisted by a create.
	CreateDataGas uint64 = 200

	// MaxCodeSize is the maximum bytecode size a create may install.
	MaxCodeSize = 24576

	// CallGasQuotient feeds the forwarding rule: a sub-call may receive at
	// most remaining - remaining/CallGasQuotient of the parent's gas.
	CallGasQuotient uint64 = 64

	// RefundQuotient caps the gas refund at used/RefundQuotient.
	RefundQuotient uint64 = 2

	// StorageEntrySize is the ledger footprint of one storage entry
	// (32-byte key plus 32-byte value), the unit the storage meter
	// charges and refunds.
	StorageEntrySize uint64 = 64
)

// Precompile gas costs.
const (
	EcrecoverGas        uint64 = 3000
	Sha256BaseGas       uint64 = 60
	Sha256PerWordGas    uint64 = 12
	Ripemd160BaseGas    uint64 = 600
	Ripemd160PerWordGas uint64 = 120
	IdentityBaseGas     uint64 = 15
	IdentityPerWordGas  uint64 = 3
	Sha3FIPSBaseGas     uint64 = 60
	Sha3FIPSPerWordGas  uint64 = 12

	ModExpMinGas       uint64 = 200
	ModExpQuadCoeffDiv uint64 = 3

	Bn256AddGas             uint64 = 150
	Bn256ScalarMulGas       uint64 = 6000
	Bn256PairingBaseGas     uint64 = 45000
	Bn256PairingPerPointGas uint64 = 34000

	Blake2FPerRoundGas uint64 = 1
)
