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
	"github.com/osiertech/osier-evm/core/tracing"
	"github.com/osiertech/osier-evm/core/types"
	"github.com/osiertech/osier-evm/params"
)

// Handler implements Backend over the engine's current frame. All reads go
// through the frame's ledger scope; mutations additionally enforce the
// static flag.
type Handler struct {
	evm *EVM
}

var _ Backend = (*Handler)(nil)

func (h *Handler) BalanceOf(addr common.Address) (*uint256.Int, error) {
	balance, err := h.evm.sdb.GetBalance(addr)
	if err != nil {
		return nil, Fatal(err)
	}
	return &balance, nil
}

func (h *Handler) NonceOf(addr common.Address) (uint64, error) {
	nonce, err := h.evm.sdb.GetNonce(addr)
	if err != nil {
		return 0, Fatal(err)
	}
	return nonce, nil
}

func (h *Handler) CodeOf(addr common.Address) ([]byte, error) {
	code, err := h.evm.sdb.GetCode(addr)
	if err != nil {
		return nil, Fatal(err)
	}
	return code, nil
}

func (h *Handler) CodeSizeOf(addr common.Address) (int, error) {
	size, err := h.evm.sdb.GetCodeSize(addr)
	if err != nil {
		return 0, Fatal(err)
	}
	return size, nil
}

func (h *Handler) CodeHashOf(addr common.Address) (common.Hash, error) {
	hash, err := h.evm.sdb.GetCodeHash(addr)
	if err != nil {
		return common.Hash{}, Fatal(err)
	}
	return hash, nil
}

func (h *Handler) Exists(addr common.Address) (bool, error) {
	exists, err := h.evm.sdb.Exists(addr)
	if err != nil {
		return false, Fatal(err)
	}
	return exists, nil
}

func (h *Handler) Deleted(addr common.Address) bool {
	return h.evm.stack.deleted(addr)
}

func (h *Handler) StorageRead(addr common.Address, key common.Hash) (common.Hash, error) {
	value, err := h.evm.sdb.GetState(addr, key)
	if err != nil {
		return common.Hash{}, Fatal(err)
	}
	return value, nil
}

func (h *Handler) OriginalStorageRead(addr common.Address, key common.Hash) (common.Hash, error) {
	if h.evm.original == nil {
		return common.Hash{}, nil
	}
	value, err := h.evm.original.GetState(addr, key)
	if err != nil {
		return common.Hash{}, Fatal(err)
	}
	return value, nil
}

func (h *Handler) BlockNumber() uint64           { return h.evm.Context.BlockNumber }
func (h *Handler) Timestamp() uint64             { return h.evm.Context.Time }
func (h *Handler) BlockCoinbase() common.Address { return h.evm.Context.Coinbase }
func (h *Handler) BlockGasLimit() uint64         { return h.evm.Context.GasLimit }
func (h *Handler) ChainID() *uint256.Int         { return h.evm.Context.ChainID }
func (h *Handler) Difficulty() *uint256.Int      { return h.evm.Context.Difficulty }
func (h *Handler) Origin() common.Address        { return h.evm.TxContext.Origin }

func (h *Handler) IsStatic() bool              { return h.evm.stack.top().isStatic }
func (h *Handler) GasMeter() *Gasometer        { return &h.evm.stack.top().gas }
func (h *Handler) StorageMeter() *StorageMeter { return &h.evm.stack.top().storage }
func (h *Handler) Depth() int                  { return h.evm.stack.depth() }

func (h *Handler) SetStorage(addr common.Address, key, value common.Hash) error {
	frame := h.evm.stack.top()
	if frame.isStatic {
		return ErrWriteProtection
	}
	prev, err := h.evm.sdb.GetState(addr, key)
	if err != nil {
		return Fatal(err)
	}
	if err := h.evm.sdb.SetState(addr, key, value); err != nil {
		return Fatal(err)
	}
	// the storage meter tracks net entry count: only the empty/non-empty
	// transitions move it
	switch {
	case prev == (common.Hash{}) && value != (common.Hash{}):
		frame.storage.Charge(params.StorageEntrySize)
	case prev != (common.Hash{}) && value == (common.Hash{}):
		frame.storage.Refund(params.StorageEntrySize)
	}
	if tracer := h.evm.config.Tracer; tracer != nil && tracer.OnStorageChange != nil {
		tracer.OnStorageChange(addr, key, prev, value)
	}
	return nil
}

func (h *Handler) Log(addr common.Address, topics []common.Hash, data []byte) error {
	frame := h.evm.stack.top()
	if frame.isStatic {
		return ErrWriteProtection
	}
	log := &types.Log{Address: addr, Topics: topics, Data: common.Copy(data)}
	frame.logs = append(frame.logs, log)
	if tracer := h.evm.config.Tracer; tracer != nil && tracer.OnLog != nil {
		tracer.OnLog(log)
	}
	return nil
}

func (h *Handler) MarkDeleted(addr, beneficiary common.Address) error {
	frame := h.evm.stack.top()
	if frame.isStatic {
		return ErrWriteProtection
	}
	balance, err := h.evm.sdb.GetBalance(addr)
	if err != nil {
		return Fatal(err)
	}
	if !balance.IsZero() {
		// the sweep happens in this frame's scope; a reverting ancestor
		// undoes it along with the deletion mark
		if err := h.evm.transfer(addr, beneficiary, &balance, tracing.BalanceChangeSelfdestruct); err != nil {
			return err
		}
	}
	frame.deletions.Add(addr)
	frame.touched.Add(beneficiary)
	return nil
}

func (h *Handler) Transfer(from, to common.Address, value *uint256.Int) error {
	frame := h.evm.stack.top()
	if frame.isStatic {
		return ErrWriteProtection
	}
	return h.evm.transfer(from, to, value, tracing.BalanceChangeTransfer)
}

func (h *Handler) Call(caller, target common.Address, input []byte, gas uint64, value *uint256.Int, static bool) ([]byte, error) {
	if value != nil && !value.IsZero() && h.evm.stack.top().isStatic {
		return nil, ErrWriteProtection
	}
	return h.evm.callFrame(caller, target, input, gas, value, static)
}

func (h *Handler) Create(caller common.Address, initCode []byte, gas uint64, value *uint256.Int) (common.Address, []byte, error) {
	return h.evm.createFrame(caller, initCode, gas, value, nil, nil)
}

func (h *Handler) Create2(caller common.Address, initCode []byte, salt common.Hash, gas uint64, value *uint256.Int) (common.Address, []byte, error) {
	return h.evm.createFrame(caller, initCode, gas, value, &salt, nil)
}
