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

// Package tracing defines the optional instrumentation surface of the
// execution engine. A tracer is an explicit *Hooks value handed to the
// engine in its configuration; there is no ambient or global registration.
// Every hook field may be nil independently.
package tracing

import (
	"github.com/holiman/uint256"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/core/types"
)

// GasChangeReason tells a tracer why the gas counter moved.
type GasChangeReason byte

const (
	GasChangeUnspecified GasChangeReason = iota
	// GasChangeCallInitialBalance is the initial budget of a frame.
	GasChangeCallInitialBalance
	// GasChangeCallLeftOverReturned is unused child gas folded into the parent.
	GasChangeCallLeftOverReturned
	// GasChangeCallFailedExecution is the burn of all remaining gas on a
	// failed frame.
	GasChangeCallFailedExecution
	// GasChangeCallCodeStorage is the deposit charged for persisting created
	// code.
	GasChangeCallCodeStorage
	// GasChangeCallPrecompiledContract is a precompile charging its cost.
	GasChangeCallPrecompiledContract
)

// BalanceChangeReason tells a tracer why a balance moved.
type BalanceChangeReason byte

const (
	BalanceChangeUnspecified BalanceChangeReason = iota
	// BalanceChangeTransfer is a value transfer between accounts.
	BalanceChangeTransfer
	// BalanceChangeSelfdestruct is the sweep of a deleted account's balance.
	BalanceChangeSelfdestruct
	// BalanceChangeTouchAccount is a zero-value touch.
	BalanceChangeTouchAccount
)

// NonceChangeReason tells a tracer why a nonce moved.
type NonceChangeReason byte

const (
	NonceChangeUnspecified NonceChangeReason = iota
	// NonceChangeEoACall is the sender increment at the top of a call tree.
	NonceChangeEoACall
	// NonceChangeContractCreator is the creator increment before a create.
	NonceChangeContractCreator
)

// Hooks is the set of callbacks a tracer may install. Call frame hooks fire
// at frame boundaries, state hooks fire on every observed mutation. All
// fields are optional.
type Hooks struct {
	// OnEnter fires when a call frame opens, including the root frame.
	OnEnter func(depth int, typ byte, from, to common.Address, precompile bool, input []byte, gas uint64, value *uint256.Int, code []byte)
	// OnExit fires when a call frame resolves. reverted is true for any
	// non-success exit.
	OnExit func(depth int, output []byte, gasUsed uint64, err error, reverted bool)
	// OnOpcode is forwarded to the interpreter stepper; the engine itself
	// never fires it.
	OnOpcode func(pc uint64, op byte, gas, cost uint64, depth int, err error)
	// OnFault fires when the stepper reports a faulting instruction.
	OnFault func(pc uint64, op byte, gas, cost uint64, depth int, err error)
	// OnGasChange fires whenever a frame's gas counter moves.
	OnGasChange func(old, new uint64, reason GasChangeReason)

	OnBalanceChange func(addr common.Address, prev, new *uint256.Int, reason BalanceChangeReason)
	OnNonceChange   func(addr common.Address, prev, new uint64, reason NonceChangeReason)
	OnCodeChange    func(addr common.Address, prevCodeHash common.Hash, prevCode []byte, codeHash common.Hash, code []byte)
	OnStorageChange func(addr common.Address, slot common.Hash, prev, new common.Hash)
	OnLog           func(log *types.Log)
}
