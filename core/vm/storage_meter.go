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

import "math"

// StorageMeter tracks the ledger bytes a frame adds and releases: new
// storage entries and deposited contract code charge it, removed entries
// refund it. Each frame carries its own meter sized to the parent's
// headroom; a committing child merges parent-ward, a reverting child is
// dropped. The limit is only enforced at settlement, so a frame may
// transiently overspend as long as later refunds bring it back under.
type StorageMeter struct {
	limit         uint64
	used          uint64
	refunded      uint64
	childUsed     uint64
	childRefunded uint64
}

// NewStorageMeter returns a meter allowing limit net bytes of growth.
func NewStorageMeter(limit uint64) StorageMeter {
	return StorageMeter{limit: limit}
}

func (m *StorageMeter) child() StorageMeter {
	return NewStorageMeter(m.Available())
}

func (m *StorageMeter) Limit() uint64 { return m.limit }

// TotalUsed is the bytes charged by this frame and its committed children.
func (m *StorageMeter) TotalUsed() uint64 { return satAdd(m.used, m.childUsed) }

// TotalRefunded is the bytes refunded by this frame and its committed
// children.
func (m *StorageMeter) TotalRefunded() uint64 { return satAdd(m.refunded, m.childRefunded) }

// Available is the headroom left for a child frame: the limit plus every
// refund, less everything charged so far.
func (m *StorageMeter) Available() uint64 {
	return satSub(satAdd(satAdd(m.limit, m.refunded), m.childRefunded), satAdd(m.used, m.childUsed))
}

// Charge records storage bytes of growth. Never fails; the limit check
// happens in Finish.
func (m *StorageMeter) Charge(bytes uint64) {
	m.used = satAdd(m.used, bytes)
}

// Uncharge takes back a previous charge without counting as a refund.
func (m *StorageMeter) Uncharge(bytes uint64) {
	m.used = satSub(m.used, bytes)
}

// Refund records storage bytes released back to the ledger.
func (m *StorageMeter) Refund(bytes uint64) {
	m.refunded = satAdd(m.refunded, bytes)
}

// merge folds a committed child's totals into this meter.
func (m *StorageMeter) merge(child *StorageMeter) {
	m.childUsed = satAdd(m.childUsed, child.TotalUsed())
	m.childRefunded = satAdd(m.childRefunded, child.TotalRefunded())
}

// Finish settles the meter: the net byte delta of the whole frame tree,
// or ErrOutOfStorage when net growth exceeds the limit.
func (m *StorageMeter) Finish() (int64, error) {
	used, refunded := m.TotalUsed(), m.TotalRefunded()
	if m.limit < satSub(used, refunded) {
		return 0, ErrOutOfStorage
	}
	if used >= refunded {
		return int64(used - refunded), nil
	}
	return -int64(refunded - used), nil
}

func satAdd(a, b uint64) uint64 {
	if c := a + b; c >= a {
		return c
	}
	return math.MaxUint64
}

func satSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
