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
	"github.com/holiman/uint256"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/common/u256"
)

// Backend is the capability surface the interpreter stepper executes
// against. It is handed to the stepper explicitly on every Run; there is no
// global or implicit binding to the engine.
//
// All mutating operations fail with ErrWriteProtection when the current
// frame is static. Errors returned from nested Call/Create carry the frame
// classification; ErrExecutionReverted additionally carries the revert data
// in the returned bytes.
type Backend interface {
	// Account reads.
	BalanceOf(addr common.Address) (*uint256.Int, error)
	NonceOf(addr common.Address) (uint64, error)
	CodeOf(addr common.Address) ([]byte, error)
	CodeSizeOf(addr common.Address) (int, error)
	CodeHashOf(addr common.Address) (common.Hash, error)
	Exists(addr common.Address) (bool, error)
	// Deleted reports whether addr is marked for deletion in the current
	// frame or any ancestor.
	Deleted(addr common.Address) bool

	// Storage.
	StorageRead(addr common.Address, key common.Hash) (common.Hash, error)
	// OriginalStorageRead returns the pre-transaction value of the slot,
	// used only for refund accounting. It may return the zero value when
	// originals are not tracked.
	OriginalStorageRead(addr common.Address, key common.Hash) (common.Hash, error)

	// Block metadata.
	BlockNumber() uint64
	// Timestamp is in seconds.
	Timestamp() uint64
	BlockCoinbase() common.Address
	BlockGasLimit() uint64
	ChainID() *uint256.Int
	Difficulty() *uint256.Int
	Origin() common.Address

	// Current frame.
	IsStatic() bool
	GasMeter() *Gasometer
	StorageMeter() *StorageMeter
	Depth() int

	// Mutations.
	SetStorage(addr common.Address, key, value common.Hash) error
	Log(addr common.Address, topics []common.Hash, data []byte) error
	// MarkDeleted records addr for deletion and sweeps its remaining
	// balance to beneficiary. The deletion is applied to the ledger only
	// when the root frame commits.
	MarkDeleted(addr, beneficiary common.Address) error
	Transfer(from, to common.Address, value *uint256.Int) error

	// Nested dispatch: each pushes a child frame, runs it to resolution
	// and folds it back into the current frame.
	Call(caller, target common.Address, input []byte, gas uint64, value *uint256.Int, static bool) ([]byte, error)
	Create(caller common.Address, initCode []byte, gas uint64, value *uint256.Int) (common.Address, []byte, error)
	Create2(caller common.Address, initCode []byte, salt common.Hash, gas uint64, value *uint256.Int) (common.Address, []byte, error)
}

// Interpreter is the supplied opcode stepper. The engine dispatches a frame
// to it and interprets the returned error as the frame classification:
// nil for success, ErrExecutionReverted for an explicit revert with output,
// any other error for a recoverable failure, a FatalError to abort the whole
// call tree.
type Interpreter interface {
	Run(backend Backend, contract *Contract, input []byte) ([]byte, error)
}

// Contract is the scoped execution context handed to the stepper: whose
// code runs, at which address, with which caller and value.
type Contract struct {
	CallerAddress common.Address
	Address       common.Address
	Value         *uint256.Int
	Code          []byte
	CodeHash      common.Hash
}

// NewContract builds the stepper's execution context.
func NewContract(caller, addr common.Address, value *uint256.Int, code []byte, codeHash common.Hash) *Contract {
	if value == nil {
		value = u256.Num0
	}
	return &Contract{
		CallerAddress: caller,
		Address:       addr,
		Value:         value,
		Code:          code,
		CodeHash:      codeHash,
	}
}
