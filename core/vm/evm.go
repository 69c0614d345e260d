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
	"errors"
	"math"

	"github.com/holiman/uint256"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/core/state"
	"github.com/osiertech/osier-evm/core/tracing"
	"github.com/osiertech/osier-evm/core/types"
	"github.com/osiertech/osier-evm/crypto"
	"github.com/osiertech/osier-evm/params"
)

// OpCode identifies the frame kind for tracing purposes.
type OpCode byte

const (
	CREATE     OpCode = 0xf0
	CALL       OpCode = 0xf1
	CREATE2    OpCode = 0xf5
	STATICCALL OpCode = 0xfa
)

type (
	// CanTransferFunc reports whether the account can cover the amount.
	CanTransferFunc func(*state.StateDB, common.Address, *uint256.Int) (bool, error)
	// TransferFunc moves value between accounts. It is the single currency
	// collaborator for both ordinary value transfers and self-destruct
	// sweeps, so the policy must allow draining an account completely.
	TransferFunc func(*state.StateDB, common.Address, common.Address, *uint256.Int) error
)

// BlockContext provides the engine with the block-level collaborators:
// currency transfer policy and block metadata. Time is in seconds; chain
// timestamps arrive in milliseconds and must go through NewBlockContext.
type BlockContext struct {
	CanTransfer CanTransferFunc
	Transfer    TransferFunc

	Coinbase    common.Address
	BlockNumber uint64
	Time        uint64
	GasLimit    uint64
	Difficulty  *uint256.Int
	ChainID     *uint256.Int
}

// NewBlockContext builds a BlockContext with the default transfer policy.
// timestampMs is the chain timestamp in milliseconds; the VM expects
// seconds, so it is floor-divided by 1000 here.
func NewBlockContext(blockNumber, timestampMs uint64, coinbase common.Address, gasLimit uint64, chainID *uint256.Int) BlockContext {
	if chainID == nil {
		chainID = new(uint256.Int)
	}
	return BlockContext{
		CanTransfer: CanTransfer,
		Transfer:    Transfer,
		Coinbase:    coinbase,
		BlockNumber: blockNumber,
		Time:        timestampMs / 1000,
		GasLimit:    gasLimit,
		Difficulty:  new(uint256.Int),
		ChainID:     chainID,
	}
}

// CanTransfer is the default balance check.
func CanTransfer(sdb *state.StateDB, addr common.Address, amount *uint256.Int) (bool, error) {
	balance, err := sdb.GetBalance(addr)
	if err != nil {
		return false, err
	}
	return !balance.Lt(amount), nil
}

// Transfer is the default value mover.
func Transfer(sdb *state.StateDB, sender, recipient common.Address, amount *uint256.Int) error {
	if err := sdb.SubBalance(sender, amount); err != nil {
		return err
	}
	return sdb.AddBalance(recipient, amount)
}

// TxContext carries per-dispatch information.
type TxContext struct {
	Origin   common.Address
	GasPrice *uint256.Int
}

// Config are the engine's tunables. The zero value runs with the standard
// precompile table, no tracer and inert bytecode.
type Config struct {
	// Tracer observes frame boundaries and state mutations. Optional.
	Tracer *tracing.Hooks
	// Interpreter is the supplied opcode stepper. When nil, accounts with
	// code execute as no-ops; value transfer, precompiles and create
	// bookkeeping still apply.
	Interpreter Interpreter
	// MaxCodeSize overrides params.MaxCodeSize when positive.
	MaxCodeSize int
	// StorageLimit caps the net ledger bytes a dispatch may add. Zero
	// means unmetered.
	StorageLimit uint64
	// NewContractExtraBytes is the per-contract overhead charged to the
	// storage meter on top of the deposited code.
	NewContractExtraBytes uint64
	// Precompiles overrides the standard table when non-nil.
	Precompiles map[common.Address]PrecompiledContract
}

func (c *Config) maxCodeSize() int {
	if c.MaxCodeSize > 0 {
		return c.MaxCodeSize
	}
	return params.MaxCodeSize
}

func (c *Config) storageLimit() uint64 {
	if c.StorageLimit > 0 {
		return c.StorageLimit
	}
	return math.MaxUint64
}

// EVM drives one call tree: it owns the substate stack, dispatches frames
// to the interpreter and resolves them against the ledger. It must not be
// reused across dispatches and is not safe for concurrent use.
type EVM struct {
	Context   BlockContext
	TxContext TxContext

	config      Config
	stack       *substateStack
	sdb         *state.StateDB
	original    *state.StateDB // pre-transaction view for refund accounting
	precompiles map[common.Address]PrecompiledContract
}

// NewEVM builds an engine over a StateDB already bound to the root ledger
// scope. original may be nil; original-storage reads then return zero.
func NewEVM(blockCtx BlockContext, txCtx TxContext, sdb *state.StateDB, original *state.StateDB, config Config) *EVM {
	precompiles := config.Precompiles
	if precompiles == nil {
		precompiles = PrecompiledContracts
	}
	return &EVM{
		Context:     blockCtx,
		TxContext:   txCtx,
		config:      config,
		stack:       newSubstateStack(),
		sdb:         sdb,
		original:    original,
		precompiles: precompiles,
	}
}

// Config returns the engine configuration.
func (evm *EVM) Config() Config { return evm.config }

func (evm *EVM) precompile(addr common.Address) (PrecompiledContract, bool) {
	p, ok := evm.precompiles[addr]
	return p, ok
}

// rebind points the StateDB at the top frame's ledger scope.
func (evm *EVM) rebind() {
	evm.sdb.SetTx(evm.stack.top().tx)
}

func classify(err error) frameStatus {
	switch {
	case err == nil:
		return frameSucceeded
	case IsFatal(err):
		return frameFatal
	case errors.Is(err, ErrExecutionReverted):
		return frameReverted
	default:
		return frameErrored
	}
}

// transfer moves value through the currency collaborator, firing balance
// hooks when installed.
func (evm *EVM) transfer(from, to common.Address, value *uint256.Int, reason tracing.BalanceChangeReason) error {
	can, err := evm.Context.CanTransfer(evm.sdb, from, value)
	if err != nil {
		return Fatal(err)
	}
	if !can {
		return ErrInsufficientBalance
	}
	tracer := evm.config.Tracer
	if tracer != nil && tracer.OnBalanceChange != nil {
		fromPrev, _ := evm.sdb.GetBalance(from)
		toPrev, _ := evm.sdb.GetBalance(to)
		if err := evm.Context.Transfer(evm.sdb, from, to, value); err != nil {
			return err
		}
		fromNew, _ := evm.sdb.GetBalance(from)
		toNew, _ := evm.sdb.GetBalance(to)
		tracer.OnBalanceChange(from, &fromPrev, &fromNew, reason)
		tracer.OnBalanceChange(to, &toPrev, &toNew, reason)
		return nil
	}
	return evm.Context.Transfer(evm.sdb, from, to, value)
}

// runCall executes a call body inside the current top frame: value
// transfer, then precompile dispatch or bytecode execution.
func (evm *EVM) runCall(caller, target common.Address, input []byte, value *uint256.Int) ([]byte, error) {
	frame := evm.stack.top()
	if uint64(evm.stack.depth()) > params.CallCreateDepth {
		return nil, ErrDepth
	}
	if value != nil && !value.IsZero() {
		if frame.isStatic {
			return nil, ErrWriteProtection
		}
		if err := evm.transfer(caller, target, value, tracing.BalanceChangeTransfer); err != nil {
			return nil, err
		}
	}
	frame.touched.Add(target)

	if p, ok := evm.precompile(target); ok {
		return RunPrecompiledContract(p, input, &frame.gas, evm.config.Tracer)
	}
	code, err := evm.sdb.GetCode(target)
	if err != nil {
		return nil, Fatal(err)
	}
	if len(code) == 0 || evm.config.Interpreter == nil {
		return nil, nil
	}
	codeHash, err := evm.sdb.GetCodeHash(target)
	if err != nil {
		return nil, Fatal(err)
	}
	contract := NewContract(caller, target, value, code, codeHash)
	return evm.config.Interpreter.Run(evm.handler(), contract, input)
}

// runCreate executes a create body inside the current top frame: collision
// check, storage reset, value transfer, init code, then the terminal code
// deposit. Code is installed at most once, only here, only on success.
func (evm *EVM) runCreate(caller, address common.Address, initCode []byte, value *uint256.Int) ([]byte, error) {
	frame := evm.stack.top()
	if uint64(evm.stack.depth()) > params.CallCreateDepth {
		return nil, ErrDepth
	}

	targetNonce, err := evm.sdb.GetNonce(address)
	if err != nil {
		return nil, Fatal(err)
	}
	targetCodeHash, err := evm.sdb.GetCodeHash(address)
	if err != nil {
		return nil, Fatal(err)
	}
	occupant := state.Account{CodeHash: targetCodeHash}
	if targetNonce != 0 || occupant.HasCode() {
		return nil, ErrContractAddressCollision
	}

	frame.touched.Add(address)
	// a previous incarnation may have left residual storage behind
	if err := evm.sdb.ClearStorage(address); err != nil {
		return nil, Fatal(err)
	}
	if err := evm.sdb.SetNonce(address, 1); err != nil {
		return nil, Fatal(err)
	}
	if value != nil && !value.IsZero() {
		if err := evm.transfer(caller, address, value, tracing.BalanceChangeTransfer); err != nil {
			return nil, err
		}
	}

	var ret []byte
	if len(initCode) > 0 && evm.config.Interpreter != nil {
		contract := NewContract(caller, address, value, initCode, crypto.Keccak256Hash(initCode))
		ret, err = evm.config.Interpreter.Run(evm.handler(), contract, nil)
		if err != nil {
			return ret, err
		}
	}
	if len(ret) > evm.config.maxCodeSize() {
		return nil, ErrMaxCodeSizeExceeded
	}
	if err := frame.gas.RecordDeposit(len(ret)); err != nil {
		return nil, err
	}
	frame.storage.Charge(uint64(len(ret)) + evm.config.NewContractExtraBytes)
	if len(ret) > 0 {
		tracer := evm.config.Tracer
		var prevHash common.Hash
		if tracer != nil && tracer.OnCodeChange != nil {
			prevHash, _ = evm.sdb.GetCodeHash(address)
		}
		codeHash, err := evm.sdb.SetCode(address, ret)
		if err != nil {
			return nil, Fatal(err)
		}
		if tracer != nil && tracer.OnCodeChange != nil {
			tracer.OnCodeChange(address, prevHash, nil, codeHash, ret)
		}
	}
	return ret, nil
}

// callFrame runs a nested call in a fresh child frame and resolves it.
// Used by the Backend for sub-calls; the root frame is driven by the
// Runner instead.
func (evm *EVM) callFrame(caller, target common.Address, input []byte, gas uint64, value *uint256.Int, static bool) (ret []byte, err error) {
	parent := evm.stack.top()
	gas = parent.gas.callGasCap(gas)
	if err := parent.gas.RecordCost(gas); err != nil {
		return nil, err
	}
	budget := gas
	if value != nil && !value.IsZero() && !static {
		budget += params.CallStipend
	}
	if _, err := evm.stack.enter(budget, static); err != nil {
		return nil, err
	}
	evm.rebind()

	typ := CALL
	if static {
		typ = STATICCALL
	}
	evm.captureEnter(typ, caller, target, input, budget, value)
	ret, err = evm.runCall(caller, target, input, value)
	gasUsed := evm.stack.top().gas.TotalUsed()
	err = evm.resolveChild(err)
	evm.captureExit(gasUsed, ret, err)
	return ret, err
}

// createFrame runs a nested create in a fresh child frame and resolves it.
// The creator's nonce is incremented in the parent frame's scope before the
// child opens, so it survives a failed or reverted create.
func (evm *EVM) createFrame(caller common.Address, initCode []byte, gas uint64, value *uint256.Int, salt *common.Hash, fixedAddr *common.Address) (addr common.Address, ret []byte, err error) {
	parent := evm.stack.top()
	if parent.isStatic {
		return common.Address{}, nil, ErrWriteProtection
	}

	nonce, err := evm.sdb.GetNonce(caller)
	if err != nil {
		return common.Address{}, nil, Fatal(err)
	}
	if nonce+1 < nonce {
		return common.Address{}, nil, ErrNonceUintOverflow
	}
	typ := CREATE
	switch {
	case fixedAddr != nil:
		addr = *fixedAddr
	case salt != nil:
		typ = CREATE2
		addr = types.CreateAddress2(caller, *salt, crypto.Keccak256(initCode))
	default:
		addr = types.CreateAddress(caller, nonce)
	}
	if err := evm.setNonce(caller, nonce, nonce+1, tracing.NonceChangeContractCreator); err != nil {
		return common.Address{}, nil, err
	}

	gas = parent.gas.callGasCap(gas)
	if err := parent.gas.RecordCost(gas); err != nil {
		return common.Address{}, nil, err
	}
	if _, err := evm.stack.enter(gas, false); err != nil {
		return common.Address{}, nil, err
	}
	evm.rebind()

	evm.captureEnter(typ, caller, addr, initCode, gas, value)
	ret, err = evm.runCreate(caller, addr, initCode, value)
	gasUsed := evm.stack.top().gas.TotalUsed()
	err = evm.resolveChild(err)
	evm.captureExit(gasUsed, ret, err)
	return addr, ret, err
}

// resolveChild folds the top frame into its parent according to the body's
// outcome and rebinds the StateDB. Fatal errors additionally fail the
// parent's gas meter: they are never contained at a frame boundary.
func (evm *EVM) resolveChild(bodyErr error) error {
	child := evm.stack.top()
	// a poisoned meter cannot be committed, even when the stepper swallowed
	// the error that poisoned it
	if bodyErr == nil {
		bodyErr = child.gas.Failed()
	}
	status := classify(bodyErr)
	child.status = status

	var resolveErr error
	switch status {
	case frameSucceeded:
		resolveErr = evm.stack.exitCommit()
	case frameReverted:
		resolveErr = evm.stack.exitRevert()
	case frameErrored:
		resolveErr = evm.stack.exitDiscard()
	case frameFatal:
		resolveErr = evm.stack.exitDiscard()
		evm.stack.top().gas.Fail(bodyErr)
	}
	evm.rebind()
	if resolveErr != nil {
		evm.stack.top().gas.Fail(ErrOutOfGas)
		return Fatal(resolveErr)
	}
	return bodyErr
}

// setNonce writes a nonce and fires the nonce hook.
func (evm *EVM) setNonce(addr common.Address, prev, next uint64, reason tracing.NonceChangeReason) error {
	if err := evm.sdb.SetNonce(addr, next); err != nil {
		return Fatal(err)
	}
	if tracer := evm.config.Tracer; tracer != nil && tracer.OnNonceChange != nil {
		tracer.OnNonceChange(addr, prev, next, reason)
	}
	return nil
}

// finalize applies the root frame's deferred effects inside the root
// scope, immediately before the Runner commits it: marked accounts are
// deleted and empty touched accounts are dropped. Called exactly once, and
// only when the root frame succeeded.
func (evm *EVM) finalize() error {
	root := evm.stack.top()
	var ferr error
	root.deletions.Each(func(addr common.Address) bool {
		ferr = evm.sdb.DeleteAccount(addr)
		return ferr != nil
	})
	if ferr != nil {
		return Fatal(ferr)
	}
	root.touched.Each(func(addr common.Address) bool {
		if root.deletions.Contains(addr) {
			return false
		}
		var empty bool
		if empty, ferr = evm.sdb.Empty(addr); ferr != nil {
			return true
		}
		if empty {
			ferr = evm.sdb.DeleteAccount(addr)
		}
		return ferr != nil
	})
	if ferr != nil {
		return Fatal(ferr)
	}
	return nil
}

func (evm *EVM) handler() *Handler {
	return &Handler{evm: evm}
}

func (evm *EVM) captureEnter(typ OpCode, from, to common.Address, input []byte, gas uint64, value *uint256.Int) {
	tracer := evm.config.Tracer
	if tracer == nil {
		return
	}
	_, isPrecompile := evm.precompile(to)
	if tracer.OnEnter != nil {
		tracer.OnEnter(evm.stack.depth()-1, byte(typ), from, to, isPrecompile, input, gas, value, nil)
	}
	if tracer.OnGasChange != nil {
		tracer.OnGasChange(0, gas, tracing.GasChangeCallInitialBalance)
	}
}

func (evm *EVM) captureExit(gasUsed uint64, ret []byte, err error) {
	tracer := evm.config.Tracer
	if tracer == nil || tracer.OnExit == nil {
		return
	}
	tracer.OnExit(evm.stack.depth(), ret, gasUsed, err, err != nil)
}
