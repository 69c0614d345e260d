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
	"go.uber.org/zap"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/common/u256"
	"github.com/osiertech/osier-evm/core/state"
	"github.com/osiertech/osier-evm/core/tracing"
	"github.com/osiertech/osier-evm/core/types"
	"github.com/osiertech/osier-evm/crypto"
	"github.com/osiertech/osier-evm/kv"
)

// ExitStatus classifies how a dispatch resolved.
type ExitStatus uint8

const (
	// ExitSucceeded: the root frame committed; all mutations persist.
	ExitSucceeded ExitStatus = iota
	// ExitReverted: the contract aborted intentionally; gas is charged,
	// output is preserved, no contract-level state persists.
	ExitReverted
	// ExitErrored: a recoverable VM error terminated the root frame; all
	// gas is consumed, no contract-level state persists.
	ExitErrored
	// ExitFatal: a structural failure aborted the whole attempt.
	ExitFatal
)

func (s ExitStatus) String() string {
	switch s {
	case ExitSucceeded:
		return "succeeded"
	case ExitReverted:
		return "reverted"
	case ExitErrored:
		return "errored"
	case ExitFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ExecutionOutcome is the result of one top-level dispatch. It is returned
// for failed dispatches too; only a fatal failure additionally surfaces as
// an error from the Runner.
type ExecutionOutcome struct {
	Status ExitStatus
	// Err carries the failure classification for non-success statuses.
	Err error
	// Output is the return data: the created code for creates, the revert
	// data for reverts.
	Output []byte
	// UsedGas is the reported gas consumption, refund-capped on success.
	UsedGas uint64
	// StorageDelta is the net ledger bytes the committed tree added
	// (negative when it released more than it grew). Zero unless Status
	// is ExitSucceeded.
	StorageDelta int64
	// Logs accumulated by the committed call tree; empty unless Status is
	// ExitSucceeded.
	Logs []*types.Log
	// CreatedAddress is set for create dispatches, including failed ones
	// (the address the create would have used).
	CreatedAddress *common.Address
}

// Succeeded reports whether the dispatch committed.
func (o *ExecutionOutcome) Succeeded() bool { return o.Status == ExitSucceeded }

// Runner is the engine's entry point. Each dispatch increments the source
// nonce, wraps the whole call tree in one ledger transaction and resolves
// it to an ExecutionOutcome.
type Runner struct {
	store     kv.StateStore
	blockCtx  BlockContext
	config    Config
	codeCache *state.CodeCache
	logger    *zap.Logger
}

// NewRunner builds a Runner over the ledger store. logger may be nil.
func NewRunner(store kv.StateStore, blockCtx BlockContext, config Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:     store,
		blockCtx:  blockCtx,
		config:    config,
		codeCache: state.NewCodeCache(),
		logger:    logger,
	}
}

// Call dispatches a top-level call.
func (r *Runner) Call(source, target common.Address, input []byte, value *uint256.Int, gasLimit uint64) (*ExecutionOutcome, error) {
	return r.run(source, gasLimit, nil, func(evm *EVM, _ *common.Address) ([]byte, error) {
		evm.captureEnter(CALL, source, target, input, gasLimit, value)
		return evm.runCall(source, target, input, value)
	})
}

// Create dispatches a top-level create. The target address is derived from
// (source, nonce) with the nonce before its increment.
func (r *Runner) Create(source common.Address, initCode []byte, value *uint256.Int, gasLimit uint64) (*ExecutionOutcome, error) {
	derive := func(nonce uint64) common.Address {
		return types.CreateAddress(source, nonce)
	}
	return r.runCreate(source, initCode, value, gasLimit, derive, CREATE)
}

// Create2 dispatches a top-level salted create. The target address depends
// only on (source, salt, hash(initCode)).
func (r *Runner) Create2(source common.Address, initCode []byte, salt common.Hash, value *uint256.Int, gasLimit uint64) (*ExecutionOutcome, error) {
	initHash := crypto.Keccak256(initCode)
	derive := func(uint64) common.Address {
		return types.CreateAddress2(source, salt, initHash)
	}
	return r.runCreate(source, initCode, value, gasLimit, derive, CREATE2)
}

// CreateAtAddress dispatches a create at a system-assigned address; no
// derivation, same nonce semantics as Create.
func (r *Runner) CreateAtAddress(source, target common.Address, initCode []byte, value *uint256.Int, gasLimit uint64) (*ExecutionOutcome, error) {
	derive := func(uint64) common.Address { return target }
	return r.runCreate(source, initCode, value, gasLimit, derive, CREATE)
}

func (r *Runner) runCreate(source common.Address, initCode []byte, value *uint256.Int, gasLimit uint64, derive func(nonce uint64) common.Address, typ OpCode) (*ExecutionOutcome, error) {
	outcome, err := r.run(source, gasLimit, derive, func(evm *EVM, created *common.Address) ([]byte, error) {
		evm.captureEnter(typ, source, *created, initCode, gasLimit, value)
		return evm.runCreate(source, *created, initCode, value)
	})
	return outcome, err
}

// run is the dispatch skeleton shared by all entry points:
// nonce increment in its own committed scope, then one ledger transaction
// around the root frame, committed on structural success and rolled back
// wholesale otherwise.
func (r *Runner) run(source common.Address, gasLimit uint64, derive func(nonce uint64) common.Address, body func(evm *EVM, created *common.Address) ([]byte, error)) (*ExecutionOutcome, error) {
	// The nonce increment precedes the transactional scope and is pinned:
	// it is not rolled back when the dispatch subsequently fails.
	nonceTx, err := r.store.Begin()
	if err != nil {
		return r.fatalOutcome(gasLimit, nil, err)
	}
	sdb := state.New(nonceTx, r.codeCache)
	nonce, err := sdb.GetNonce(source)
	if err != nil {
		nonceTx.Rollback()
		return r.fatalOutcome(gasLimit, nil, err)
	}
	if nonce+1 < nonce {
		nonceTx.Rollback()
		return &ExecutionOutcome{Status: ExitErrored, Err: ErrNonceUintOverflow}, nil
	}
	var created *common.Address
	if derive != nil {
		addr := derive(nonce)
		created = &addr
	}
	if err := sdb.SetNonce(source, nonce+1); err != nil {
		nonceTx.Rollback()
		return r.fatalOutcome(gasLimit, created, err)
	}
	if tracer := r.config.Tracer; tracer != nil && tracer.OnNonceChange != nil {
		tracer.OnNonceChange(source, nonce, nonce+1, tracing.NonceChangeEoACall)
	}
	if err := nonceTx.Commit(); err != nil {
		return r.fatalOutcome(gasLimit, created, err)
	}

	// pre-transaction view, kept read-only for original-storage queries
	snapTx, err := r.store.Begin()
	if err != nil {
		return r.fatalOutcome(gasLimit, created, err)
	}
	defer snapTx.Rollback()

	rootTx, err := r.store.Begin()
	if err != nil {
		return r.fatalOutcome(gasLimit, created, err)
	}

	evm := NewEVM(r.blockCtx, TxContext{Origin: source, GasPrice: u256.Num0}, state.New(rootTx, r.codeCache), state.New(snapTx, r.codeCache), r.config)
	root := evm.stack.enterRoot(rootTx, gasLimit, r.config.storageLimit(), false)

	output, bodyErr := body(evm, created)
	if bodyErr == nil {
		// a descendant's fatal failure poisons ancestor meters; it must
		// surface here even when an intermediate frame swallowed it
		bodyErr = root.gas.Failed()
	}
	var storageDelta int64
	if bodyErr == nil {
		// settle the storage meter: net growth beyond the limit fails the
		// whole dispatch, exactly like a recoverable VM error
		storageDelta, bodyErr = root.storage.Finish()
	}
	status := classify(bodyErr)
	root.status = status

	outcome := &ExecutionOutcome{CreatedAddress: created, Output: output}
	switch status {
	case frameSucceeded:
		if err := evm.finalize(); err != nil {
			rootTx.Rollback()
			return r.fatalOutcome(gasLimit, created, err)
		}
		if err := rootTx.Commit(); err != nil {
			return r.fatalOutcome(gasLimit, created, err)
		}
		outcome.Status = ExitSucceeded
		outcome.UsedGas = root.gas.UsedGas()
		outcome.StorageDelta = storageDelta
		outcome.Logs = root.logs
	case frameReverted:
		rootTx.Rollback()
		outcome.Status = ExitReverted
		outcome.Err = bodyErr
		outcome.UsedGas = root.gas.TotalUsed()
	case frameErrored:
		rootTx.Rollback()
		outcome.Status = ExitErrored
		outcome.Err = bodyErr
		outcome.Output = nil
		outcome.UsedGas = gasLimit
	case frameFatal:
		rootTx.Rollback()
		outcome.Status = ExitFatal
		outcome.Err = bodyErr
		outcome.Output = nil
		outcome.UsedGas = gasLimit
		r.logger.Error("structural failure, ledger transaction discarded",
			zap.String("source", source.Hex()), zap.Error(bodyErr))
		evm.captureExit(gasLimit, nil, bodyErr)
		return outcome, bodyErr
	}
	evm.captureExit(outcome.UsedGas, output, bodyErr)

	r.logger.Debug("dispatch resolved",
		zap.String("source", source.Hex()),
		zap.Stringer("status", outcome.Status),
		zap.Uint64("gasUsed", outcome.UsedGas),
		zap.Int("logs", len(outcome.Logs)))
	return outcome, nil
}

func (r *Runner) fatalOutcome(gasLimit uint64, created *common.Address, err error) (*ExecutionOutcome, error) {
	err = Fatal(err)
	r.logger.Error("dispatch failed structurally", zap.Error(err))
	return &ExecutionOutcome{
		Status:         ExitFatal,
		Err:            err,
		UsedGas:        gasLimit,
		CreatedAddress: created,
	}, err
}
