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
	"github.com/osiertech/osier-evm/params"
)

// Gasometer meters one call frame's gas budget. It fails closed: the first
// exhaustion (or fatal failure) consumes the whole budget and every later
// operation keeps returning the recorded error.
type Gasometer struct {
	gasLimit uint64
	usedGas  uint64
	refund   uint64
	err      error
}

// NewGasometer returns a meter over the given budget.
func NewGasometer(gasLimit uint64) Gasometer {
	return Gasometer{gasLimit: gasLimit}
}

// GasLimit returns the frame's total budget.
func (g *Gasometer) GasLimit() uint64 { return g.gasLimit }

// Remaining returns the gas still available, zero once failed.
func (g *Gasometer) Remaining() uint64 {
	if g.err != nil {
		return 0
	}
	return g.gasLimit - g.usedGas
}

// Failed returns the permanent failure recorded on the meter, if any.
func (g *Gasometer) Failed() error { return g.err }

// RecordCost charges a static cost. On exhaustion the whole budget is
// consumed and ErrOutOfGas is recorded permanently.
func (g *Gasometer) RecordCost(cost uint64) error {
	if g.err != nil {
		return g.err
	}
	if g.gasLimit-g.usedGas < cost {
		g.usedGas = g.gasLimit
		g.err = ErrOutOfGas
		return g.err
	}
	g.usedGas += cost
	return nil
}

// RecordDynamicCost charges an operand-derived cost. overflow reports that
// the caller's cost computation overflowed uint64, which also fails the
// meter closed.
func (g *Gasometer) RecordDynamicCost(cost uint64, overflow bool) error {
	if g.err != nil {
		return g.err
	}
	if overflow {
		g.usedGas = g.gasLimit
		g.err = ErrGasUintOverflow
		return g.err
	}
	return g.RecordCost(cost)
}

// RecordDeposit charges the per-byte cost of persisting created code.
// Exhaustion fails with ErrCodeStoreOutOfGas, which fails the create rather
// than the whole call tree.
func (g *Gasometer) RecordDeposit(codeLen int) error {
	if g.err != nil {
		return g.err
	}
	cost := uint64(codeLen) * params.CreateDataGas
	if g.gasLimit-g.usedGas < cost {
		g.usedGas = g.gasLimit
		g.err = ErrCodeStoreOutOfGas
		return g.err
	}
	g.usedGas += cost
	return nil
}

// RecordRefund accumulates refund credit folded back from a committed child
// or granted by the stepper's gas rules.
func (g *Gasometer) RecordRefund(refund uint64) {
	g.refund += refund
}

// RecordStipend returns unused gas from a resolved child frame to this
// meter.
func (g *Gasometer) RecordStipend(stipend uint64) {
	if g.err != nil {
		return
	}
	if stipend > g.usedGas {
		g.usedGas = 0
		return
	}
	g.usedGas -= stipend
}

// Fail marks the meter permanently failed, consuming the whole budget.
// Used for fatal errors, which are never contained at a frame boundary.
func (g *Gasometer) Fail(err error) {
	g.usedGas = g.gasLimit
	g.err = err
}

// Refund returns the accumulated refund counter.
func (g *Gasometer) Refund() uint64 { return g.refund }

// TotalUsed returns the gas charged so far, before refunds.
func (g *Gasometer) TotalUsed() uint64 { return g.usedGas }

// UsedGas returns the gas used for reporting purposes:
// total charged minus the refund, capped at half of the total charged.
func (g *Gasometer) UsedGas() uint64 {
	refund := g.refund
	if cap := g.usedGas / params.RefundQuotient; refund > cap {
		refund = cap
	}
	return g.usedGas - refund
}

// callGasCap applies the forwarding rule: a child frame may receive at most
// remaining - remaining/64 of this meter's gas.
func (g *Gasometer) callGasCap(requested uint64) uint64 {
	remaining := g.Remaining()
	cap := remaining - remaining/params.CallGasQuotient
	if requested > cap {
		return cap
	}
	return requested
}
