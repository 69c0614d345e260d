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

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/core/types"
	"github.com/osiertech/osier-evm/kv"
)

// frameStatus is the lifecycle of one substate frame:
// open while the interpreter executes, then exactly one terminal state,
// then resolved into the parent.
type frameStatus uint8

const (
	frameOpen frameStatus = iota
	frameSucceeded
	frameReverted
	frameErrored
	frameFatal
)

// substate is one execution context at one call depth: its own gas
// sub-budget, the static flag, the accumulated deletion set and log list,
// and the kv scope whose commit or rollback realizes the frame's outcome.
// Frames live in an arena and reference their parent by index.
type substate struct {
	gas      Gasometer
	storage  StorageMeter
	isStatic bool
	parent   int // arena index, -1 for the root frame
	tx       kv.Tx

	deletions mapset.Set[common.Address]
	touched   mapset.Set[common.Address]
	logs      []*types.Log

	status frameStatus
}

func newSubstate(gasLimit, storageLimit uint64, isStatic bool, parent int, tx kv.Tx) *substate {
	return &substate{
		gas:       NewGasometer(gasLimit),
		storage:   NewStorageMeter(storageLimit),
		isStatic:  isStatic,
		parent:    parent,
		tx:        tx,
		deletions: mapset.NewThreadUnsafeSet[common.Address](),
		touched:   mapset.NewThreadUnsafeSet[common.Address](),
	}
}

// substateStack is the arena of frames. Frames form a strict LIFO stack: a
// child fully resolves before its parent resumes, so the live frames are
// always frames[0..len).
type substateStack struct {
	frames []*substate
}

var errNoParentFrame = errors.New("vm: resolving a frame without a parent")

func newSubstateStack() *substateStack {
	return &substateStack{}
}

// depth is the number of open frames; the root frame is depth 1.
func (st *substateStack) depth() int { return len(st.frames) }

// top returns the currently executing frame.
func (st *substateStack) top() *substate {
	return st.frames[len(st.frames)-1]
}

// enterRoot pushes the root frame over an already-open ledger scope.
func (st *substateStack) enterRoot(tx kv.Tx, gasLimit, storageLimit uint64, isStatic bool) *substate {
	f := newSubstate(gasLimit, storageLimit, isStatic, -1, tx)
	st.frames = append(st.frames, f)
	return f
}

// enter pushes a child frame of the current top, opening a nested ledger
// scope. The static flag is inherited: once true it can never be cleared by
// a descendant. The child's storage meter is sized to the parent's
// remaining headroom.
func (st *substateStack) enter(gasLimit uint64, isStatic bool) (*substate, error) {
	parent := st.top()
	childTx, err := parent.tx.Begin()
	if err != nil {
		return nil, Fatal(err)
	}
	f := newSubstate(gasLimit, parent.storage.Available(), isStatic || parent.isStatic, len(st.frames)-1, childTx)
	st.frames = append(st.frames, f)
	return f, nil
}

// exitCommit resolves the top frame into its parent: deletions, touches and
// logs fold parent-ward, unused gas returns as a stipend, the refund counter
// and storage charges accumulate, and the frame's ledger scope commits.
func (st *substateStack) exitCommit() error {
	child, parent, err := st.pop()
	if err != nil {
		return err
	}
	parent.deletions = parent.deletions.Union(child.deletions)
	parent.touched = parent.touched.Union(child.touched)
	parent.logs = append(parent.logs, child.logs...)
	parent.gas.RecordStipend(child.gas.Remaining())
	parent.gas.RecordRefund(child.gas.Refund())
	parent.storage.merge(&child.storage)
	if err := child.tx.Commit(); err != nil {
		return Fatal(err)
	}
	return nil
}

// exitRevert resolves the top frame by discarding its deletions and logs
// while still returning unused gas to the parent. Gas already spent stays
// spent.
func (st *substateStack) exitRevert() error {
	child, parent, err := st.pop()
	if err != nil {
		return err
	}
	parent.gas.RecordStipend(child.gas.Remaining())
	child.tx.Rollback()
	return nil
}

// exitDiscard resolves the top frame when its outcome is moot: nothing
// folds parent-ward and nothing returns, so all forwarded gas is consumed.
func (st *substateStack) exitDiscard() error {
	child, _, err := st.pop()
	if err != nil {
		return err
	}
	child.tx.Rollback()
	return nil
}

func (st *substateStack) pop() (child, parent *substate, err error) {
	child = st.top()
	if child.parent < 0 {
		return nil, nil, errNoParentFrame
	}
	parent = st.frames[child.parent]
	st.frames = st.frames[:len(st.frames)-1]
	return child, parent, nil
}

// deleted reports whether addr is marked for deletion in the current frame
// or any of its ancestors.
func (st *substateStack) deleted(addr common.Address) bool {
	for i := len(st.frames) - 1; i >= 0; i = st.frames[i].parent {
		if st.frames[i].deletions.Contains(addr) {
			return true
		}
	}
	return false
}
