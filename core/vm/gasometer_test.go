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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGasometerRecordCost(t *testing.T) {
	gm := NewGasometer(100)
	require.NoError(t, gm.RecordCost(30))
	require.Equal(t, uint64(70), gm.Remaining())
	require.NoError(t, gm.RecordCost(70))
	require.Equal(t, uint64(0), gm.Remaining())
	require.Equal(t, uint64(100), gm.TotalUsed())
}

func TestGasometerOutOfGasConsumesAll(t *testing.T) {
	gm := NewGasometer(100)
	require.NoError(t, gm.RecordCost(10))
	require.ErrorIs(t, gm.RecordCost(91), ErrOutOfGas)
	// exhaustion is permanent and total
	require.Equal(t, uint64(100), gm.TotalUsed())
	require.Equal(t, uint64(0), gm.Remaining())
	require.ErrorIs(t, gm.RecordCost(0), ErrOutOfGas)
	require.ErrorIs(t, gm.Failed(), ErrOutOfGas)
}

func TestGasometerDynamicOverflow(t *testing.T) {
	gm := NewGasometer(100)
	require.ErrorIs(t, gm.RecordDynamicCost(5, true), ErrGasUintOverflow)
	require.Equal(t, uint64(100), gm.TotalUsed())
}

func TestGasometerDeposit(t *testing.T) {
	gm := NewGasometer(10_000)
	require.NoError(t, gm.RecordDeposit(10)) // 10 * 200 = 2000
	require.Equal(t, uint64(2000), gm.TotalUsed())

	gm = NewGasometer(100)
	require.ErrorIs(t, gm.RecordDeposit(1), ErrCodeStoreOutOfGas)
	require.Equal(t, uint64(100), gm.TotalUsed())
}

func TestGasometerStipend(t *testing.T) {
	gm := NewGasometer(100)
	require.NoError(t, gm.RecordCost(60))
	gm.RecordStipend(25)
	require.Equal(t, uint64(35), gm.TotalUsed())

	// a stipend larger than the used counter clamps at zero
	gm.RecordStipend(1000)
	require.Equal(t, uint64(0), gm.TotalUsed())
}

func TestGasometerStipendIgnoredAfterFailure(t *testing.T) {
	gm := NewGasometer(100)
	gm.Fail(ErrOutOfGas)
	gm.RecordStipend(50)
	require.Equal(t, uint64(100), gm.TotalUsed())
	require.Equal(t, uint64(0), gm.Remaining())
}

func TestGasometerRefundCap(t *testing.T) {
	gm := NewGasometer(1000)
	require.NoError(t, gm.RecordCost(600))
	gm.RecordRefund(100)
	require.Equal(t, uint64(500), gm.UsedGas())

	// refund is capped at half of the gas charged
	gm.RecordRefund(10_000)
	require.Equal(t, uint64(300), gm.UsedGas())
	require.Equal(t, uint64(600), gm.TotalUsed())
}

func TestGasometerCallGasCap(t *testing.T) {
	gm := NewGasometer(6400)
	// 6400 - 6400/64 = 6300
	require.Equal(t, uint64(6300), gm.callGasCap(100_000))
	require.Equal(t, uint64(1000), gm.callGasCap(1000))

	gm.Fail(ErrOutOfGas)
	require.Equal(t, uint64(0), gm.callGasCap(1000))
}
