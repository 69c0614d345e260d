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
	"encoding/binary"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/core/state"
	"github.com/osiertech/osier-evm/core/types"
	"github.com/osiertech/osier-evm/kv/memdb"
	"github.com/osiertech/osier-evm/params"
)

var (
	source      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	addrA       = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	addrB       = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	addrC       = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	beneficiary = common.HexToAddress("0xfeedfeedfeedfeedfeedfeedfeedfeedfeedfeed")

	slot1 = common.BytesToHash([]byte{1})
	val1  = common.BytesToHash([]byte{0x11})

	errTestLedger = errors.New("ledger unavailable")
)

type scriptFunc func(b Backend, c *Contract, input []byte) ([]byte, error)

// scriptInterpreter dispatches frames to Go functions keyed by the exact
// code bytes, standing in for a real opcode stepper.
type scriptInterpreter struct {
	scripts map[string]scriptFunc
}

func (si *scriptInterpreter) Run(b Backend, c *Contract, input []byte) ([]byte, error) {
	if fn, ok := si.scripts[string(c.Code)]; ok {
		return fn(b, c, input)
	}
	return nil, nil
}

type testEnv struct {
	db     *memdb.DB
	runner *Runner
	cache  *state.CodeCache
}

func newTestEnv(t *testing.T, scripts map[string]scriptFunc) *testEnv {
	t.Helper()
	db := memdb.NewTestStore(t)
	blockCtx := NewBlockContext(7, 1_700_000_500, common.HexToAddress("0xc0ffee"), 30_000_000, uint256.NewInt(595))
	cfg := Config{Interpreter: &scriptInterpreter{scripts: scripts}}
	return &testEnv{
		db:     db,
		runner: NewRunner(db, blockCtx, cfg, nil),
		cache:  state.NewCodeCache(),
	}
}

// seed mutates state in its own committed transaction.
func (env *testEnv) seed(t *testing.T, fn func(sdb *state.StateDB)) {
	t.Helper()
	tx, err := env.db.Begin()
	require.NoError(t, err)
	fn(state.New(tx, env.cache))
	require.NoError(t, tx.Commit())
}

// view runs reads against the committed state.
func (env *testEnv) view(t *testing.T, fn func(sdb *state.StateDB)) {
	t.Helper()
	tx, err := env.db.Begin()
	require.NoError(t, err)
	defer tx.Rollback()
	fn(state.New(tx, env.cache))
}

func (env *testEnv) setCode(t *testing.T, addr common.Address, code []byte) {
	env.seed(t, func(sdb *state.StateDB) {
		_, err := sdb.SetCode(addr, code)
		require.NoError(t, err)
	})
}

func TestRunnerCallCommitsStateAndLogs(t *testing.T) {
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.SetStorage(c.Address, slot1, val1); err != nil {
				return nil, err
			}
			if err := b.Log(c.Address, []common.Hash{slot1}, input); err != nil {
				return nil, err
			}
			return []byte("ok"), nil
		},
	})
	env.setCode(t, addrB, codeB)

	outcome, err := env.runner.Call(source, addrB, []byte("ping"), nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)
	require.Equal(t, []byte("ok"), outcome.Output)
	require.Len(t, outcome.Logs, 1)
	require.Equal(t, addrB, outcome.Logs[0].Address)
	require.Equal(t, []byte("ping"), outcome.Logs[0].Data)
	// one fresh storage entry
	require.Equal(t, int64(params.StorageEntrySize), outcome.StorageDelta)

	env.view(t, func(sdb *state.StateDB) {
		v, err := sdb.GetState(addrB, slot1)
		require.NoError(t, err)
		require.Equal(t, val1, v)
		nonce, err := sdb.GetNonce(source)
		require.NoError(t, err)
		require.Equal(t, uint64(1), nonce)
	})
}

func TestRunnerNestedRevertContained(t *testing.T) {
	codeA := []byte("contract-a")
	codeB := []byte("contract-b")
	codeC := []byte("contract-c")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.SetStorage(addrA, slot1, val1); err != nil {
				return nil, err
			}
			_, err := b.Call(addrA, addrB, nil, 10_000, nil, false)
			return nil, err
		},
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.SetStorage(addrB, slot1, val1); err != nil {
				return nil, err
			}
			if err := b.Log(addrB, nil, []byte("kept")); err != nil {
				return nil, err
			}
			ret, err := b.Call(addrB, addrC, nil, 5_000, nil, false)
			// the callee's revert is observed, contained, and not propagated
			require.ErrorIs(t, err, ErrExecutionReverted)
			require.Equal(t, []byte("sorry"), ret)
			return nil, nil
		},
		string(codeC): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.SetStorage(addrC, slot1, val1); err != nil {
				return nil, err
			}
			if err := b.Log(addrC, nil, []byte("dropped")); err != nil {
				return nil, err
			}
			if err := b.GasMeter().RecordCost(100); err != nil {
				return nil, err
			}
			return []byte("sorry"), ErrExecutionReverted
		},
	})
	env.setCode(t, addrA, codeA)
	env.setCode(t, addrB, codeB)
	env.setCode(t, addrC, codeC)

	outcome, err := env.runner.Call(source, addrA, nil, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)

	// only the reverted frame's gas is gone; everything unused flowed back
	require.Equal(t, uint64(100), outcome.UsedGas)
	// the reverted frame's log vanished with it
	require.Len(t, outcome.Logs, 1)
	require.Equal(t, []byte("kept"), outcome.Logs[0].Data)

	env.view(t, func(sdb *state.StateDB) {
		vA, err := sdb.GetState(addrA, slot1)
		require.NoError(t, err)
		require.Equal(t, val1, vA)
		vB, err := sdb.GetState(addrB, slot1)
		require.NoError(t, err)
		require.Equal(t, val1, vB)
		vC, err := sdb.GetState(addrC, slot1)
		require.NoError(t, err)
		require.Equal(t, common.Hash{}, vC)
	})
}

func TestRunnerCreateInstallsCode(t *testing.T) {
	initCode := []byte("init-ok")
	runtime := []byte("runtime-code")
	env := newTestEnv(t, map[string]scriptFunc{
		string(initCode): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			return runtime, nil
		},
	})

	outcome, err := env.runner.Create(source, initCode, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)
	require.NotNil(t, outcome.CreatedAddress)
	require.Equal(t, types.CreateAddress(source, 0), *outcome.CreatedAddress)
	require.Equal(t, runtime, outcome.Output)
	// only the code deposit was charged
	require.Equal(t, uint64(len(runtime))*200, outcome.UsedGas)
	require.Equal(t, int64(len(runtime)), outcome.StorageDelta)

	env.view(t, func(sdb *state.StateDB) {
		code, err := sdb.GetCode(*outcome.CreatedAddress)
		require.NoError(t, err)
		require.Equal(t, runtime, code)
		nonce, err := sdb.GetNonce(*outcome.CreatedAddress)
		require.NoError(t, err)
		require.Equal(t, uint64(1), nonce)
	})
}

func TestRunnerCreateDepositFailureKeepsNonce(t *testing.T) {
	initCode := []byte("init-big")
	runtime := make([]byte, 100) // deposit needs 20000 gas
	env := newTestEnv(t, map[string]scriptFunc{
		string(initCode): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			return runtime, nil
		},
	})

	outcome, err := env.runner.Create(source, initCode, nil, 1_000)
	require.NoError(t, err)
	require.Equal(t, ExitErrored, outcome.Status)
	require.ErrorIs(t, outcome.Err, ErrCodeStoreOutOfGas)
	require.Equal(t, uint64(1_000), outcome.UsedGas)
	require.NotNil(t, outcome.CreatedAddress)

	env.view(t, func(sdb *state.StateDB) {
		// the create rolled back wholesale
		exists, err := sdb.Exists(*outcome.CreatedAddress)
		require.NoError(t, err)
		require.False(t, exists)
		// but the source nonce increment is pinned
		nonce, err := sdb.GetNonce(source)
		require.NoError(t, err)
		require.Equal(t, uint64(1), nonce)
	})
}

func TestRunnerCreate2AddressPurityAndCollision(t *testing.T) {
	initCode := []byte("init-2")
	salt := common.BytesToHash([]byte("salt"))
	env := newTestEnv(t, map[string]scriptFunc{
		string(initCode): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			return []byte{0x01}, nil
		},
	})

	first, err := env.runner.Create2(source, initCode, salt, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, first.Status)

	// the address depends only on source, salt and init code hash
	second, err := env.runner.Create2(source, initCode, salt, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, *first.CreatedAddress, *second.CreatedAddress)
	require.Equal(t, ExitErrored, second.Status)
	require.ErrorIs(t, second.Err, ErrContractAddressCollision)

	env.view(t, func(sdb *state.StateDB) {
		nonce, err := sdb.GetNonce(source)
		require.NoError(t, err)
		require.Equal(t, uint64(2), nonce)
	})
}

func TestRunnerCreateAtAddress(t *testing.T) {
	target := common.HexToAddress("0x5151515151515151515151515151515151515151")
	initCode := []byte("init-at")
	env := newTestEnv(t, map[string]scriptFunc{
		string(initCode): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			return []byte{0x02}, nil
		},
	})

	outcome, err := env.runner.CreateAtAddress(source, target, initCode, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)
	require.Equal(t, target, *outcome.CreatedAddress)

	env.view(t, func(sdb *state.StateDB) {
		code, err := sdb.GetCode(target)
		require.NoError(t, err)
		require.Equal(t, []byte{0x02}, code)
	})
}

func TestRunnerStaticCallWriteProtection(t *testing.T) {
	codeA := []byte("contract-a")
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			_, err := b.Call(addrA, addrB, nil, 10_000, nil, true)
			require.ErrorIs(t, err, ErrWriteProtection)
			return nil, nil
		},
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			require.True(t, b.IsStatic())
			if err := b.SetStorage(addrB, slot1, val1); err != nil {
				return nil, err
			}
			return nil, nil
		},
	})
	env.setCode(t, addrA, codeA)
	env.setCode(t, addrB, codeB)

	outcome, err := env.runner.Call(source, addrA, nil, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)

	env.view(t, func(sdb *state.StateDB) {
		v, err := sdb.GetState(addrB, slot1)
		require.NoError(t, err)
		require.Equal(t, common.Hash{}, v)
	})
}

func TestRunnerRootRevert(t *testing.T) {
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.SetStorage(addrB, slot1, val1); err != nil {
				return nil, err
			}
			if err := b.Log(addrB, nil, nil); err != nil {
				return nil, err
			}
			if err := b.GasMeter().RecordCost(777); err != nil {
				return nil, err
			}
			return []byte("revert-data"), ErrExecutionReverted
		},
	})
	env.setCode(t, addrB, codeB)

	outcome, err := env.runner.Call(source, addrB, nil, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitReverted, outcome.Status)
	require.ErrorIs(t, outcome.Err, ErrExecutionReverted)
	// the revert keeps its output and is charged only what it used
	require.Equal(t, []byte("revert-data"), outcome.Output)
	require.Equal(t, uint64(777), outcome.UsedGas)
	require.Empty(t, outcome.Logs)

	env.view(t, func(sdb *state.StateDB) {
		v, err := sdb.GetState(addrB, slot1)
		require.NoError(t, err)
		require.Equal(t, common.Hash{}, v)
		// administrative success: the nonce increment stands
		nonce, err := sdb.GetNonce(source)
		require.NoError(t, err)
		require.Equal(t, uint64(1), nonce)
	})
}

func TestRunnerRootErrorConsumesAllGas(t *testing.T) {
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.SetStorage(addrB, slot1, val1); err != nil {
				return nil, err
			}
			return []byte("discarded"), ErrInvalidOpcode
		},
	})
	env.setCode(t, addrB, codeB)

	outcome, err := env.runner.Call(source, addrB, nil, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitErrored, outcome.Status)
	require.ErrorIs(t, outcome.Err, ErrInvalidOpcode)
	require.Nil(t, outcome.Output)
	require.Equal(t, uint64(100_000), outcome.UsedGas)

	env.view(t, func(sdb *state.StateDB) {
		v, err := sdb.GetState(addrB, slot1)
		require.NoError(t, err)
		require.Equal(t, common.Hash{}, v)
	})
}

func TestRunnerValueTransferAndInsufficientBalance(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, func(sdb *state.StateDB) {
		require.NoError(t, sdb.AddBalance(source, uint256.NewInt(500)))
	})

	outcome, err := env.runner.Call(source, addrB, nil, uint256.NewInt(200), 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)

	env.view(t, func(sdb *state.StateDB) {
		sb, err := sdb.GetBalance(source)
		require.NoError(t, err)
		require.Equal(t, uint64(300), sb.Uint64())
		bb, err := sdb.GetBalance(addrB)
		require.NoError(t, err)
		require.Equal(t, uint64(200), bb.Uint64())
	})

	outcome, err = env.runner.Call(source, addrB, nil, uint256.NewInt(1_000), 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitErrored, outcome.Status)
	require.ErrorIs(t, outcome.Err, ErrInsufficientBalance)

	env.view(t, func(sdb *state.StateDB) {
		sb, err := sdb.GetBalance(source)
		require.NoError(t, err)
		require.Equal(t, uint64(300), sb.Uint64())
	})
}

func TestRunnerSelfDestructCommitted(t *testing.T) {
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.MarkDeleted(addrB, beneficiary); err != nil {
				return nil, err
			}
			require.True(t, b.Deleted(addrB))
			return nil, nil
		},
	})
	env.setCode(t, addrB, codeB)
	env.seed(t, func(sdb *state.StateDB) {
		require.NoError(t, sdb.AddBalance(addrB, uint256.NewInt(900)))
	})

	outcome, err := env.runner.Call(source, addrB, nil, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)

	env.view(t, func(sdb *state.StateDB) {
		exists, err := sdb.Exists(addrB)
		require.NoError(t, err)
		require.False(t, exists)
		bal, err := sdb.GetBalance(beneficiary)
		require.NoError(t, err)
		require.Equal(t, uint64(900), bal.Uint64())
	})
}

func TestRunnerSelfDestructRevertedInChild(t *testing.T) {
	codeA := []byte("contract-a")
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			_, err := b.Call(addrA, addrB, nil, 10_000, nil, false)
			require.ErrorIs(t, err, ErrExecutionReverted)
			return nil, nil
		},
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.MarkDeleted(addrB, beneficiary); err != nil {
				return nil, err
			}
			return nil, ErrExecutionReverted
		},
	})
	env.setCode(t, addrA, codeA)
	env.setCode(t, addrB, codeB)
	env.seed(t, func(sdb *state.StateDB) {
		require.NoError(t, sdb.AddBalance(addrB, uint256.NewInt(900)))
	})

	outcome, err := env.runner.Call(source, addrA, nil, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)

	env.view(t, func(sdb *state.StateDB) {
		// the deletion mark and its balance sweep reverted together
		exists, err := sdb.Exists(addrB)
		require.NoError(t, err)
		require.True(t, exists)
		bal, err := sdb.GetBalance(addrB)
		require.NoError(t, err)
		require.Equal(t, uint64(900), bal.Uint64())
		bene, err := sdb.GetBalance(beneficiary)
		require.NoError(t, err)
		require.True(t, bene.IsZero())
	})
}

func TestRunnerPrecompileGas(t *testing.T) {
	env := newTestEnv(t, nil)

	input := make([]byte, blake2FInputLength)
	input[3] = 5 // 5 rounds
	input[212] = 1

	outcome, err := env.runner.Call(source, common.BytesToAddress([]byte{0x09}), input, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)
	require.Equal(t, uint64(5), outcome.UsedGas)
	require.Len(t, outcome.Output, 64)
}

func TestRunnerCallStipend(t *testing.T) {
	codeA := []byte("contract-a")
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			return b.Call(addrA, addrB, nil, 1_000, uint256.NewInt(5), false)
		},
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			out := make([]byte, 8)
			binary.BigEndian.PutUint64(out, b.GasMeter().GasLimit())
			return out, nil
		},
	})
	env.setCode(t, addrA, codeA)
	env.setCode(t, addrB, codeB)
	env.seed(t, func(sdb *state.StateDB) {
		require.NoError(t, sdb.AddBalance(addrA, uint256.NewInt(100)))
	})

	outcome, err := env.runner.Call(source, addrA, nil, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)
	// the value-bearing call granted the 2300 stipend on top of the forward
	require.Equal(t, uint64(3_300), binary.BigEndian.Uint64(outcome.Output))
}

func TestRunnerNestedCreateNoncePinned(t *testing.T) {
	codeA := []byte("contract-a")
	initFail := []byte("init-fail")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			addr, _, err := b.Create(addrA, initFail, 50_000, nil)
			require.ErrorIs(t, err, ErrInvalidOpcode)
			require.Equal(t, types.CreateAddress(addrA, 0), addr)
			return nil, nil
		},
		string(initFail): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			return nil, ErrInvalidOpcode
		},
	})
	env.setCode(t, addrA, codeA)

	outcome, err := env.runner.Call(source, addrA, nil, nil, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)

	env.view(t, func(sdb *state.StateDB) {
		// the creator's nonce moved even though the create failed
		nonce, err := sdb.GetNonce(addrA)
		require.NoError(t, err)
		require.Equal(t, uint64(1), nonce)
		exists, err := sdb.Exists(types.CreateAddress(addrA, 0))
		require.NoError(t, err)
		require.False(t, exists)
	})
}

func TestRunnerStaticCreateForbidden(t *testing.T) {
	codeA := []byte("contract-a")
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			return b.Call(addrA, addrB, nil, 50_000, nil, true)
		},
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			_, _, err := b.Create(addrB, []byte("init"), 10_000, nil)
			return nil, err
		},
	})
	env.setCode(t, addrA, codeA)
	env.setCode(t, addrB, codeB)

	outcome, err := env.runner.Call(source, addrA, nil, nil, 1_000_000)
	require.NoError(t, err)
	// the write-protection error propagated out of both frames
	require.Equal(t, ExitErrored, outcome.Status)
	require.ErrorIs(t, outcome.Err, ErrWriteProtection)
}

func TestRunnerFatalAbortsWithError(t *testing.T) {
	codeA := []byte("contract-a")
	codeB := []byte("contract-b")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			_, err := b.Call(addrA, addrB, nil, 10_000, nil, false)
			// a fatal error must not be swallowed by an intermediate frame
			require.Error(t, err)
			return nil, nil
		},
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			return nil, Fatal(errTestLedger)
		},
	})
	env.setCode(t, addrA, codeA)
	env.setCode(t, addrB, codeB)

	outcome, err := env.runner.Call(source, addrA, nil, nil, 1_000_000)
	require.Error(t, err)
	require.Equal(t, ExitFatal, outcome.Status)
	require.Equal(t, uint64(1_000_000), outcome.UsedGas)
}

func TestRunnerDepthLimit(t *testing.T) {
	codeA := []byte("contract-a")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			ret, err := b.Call(addrA, addrA, nil, b.GasMeter().Remaining(), nil, false)
			if err != nil {
				out := make([]byte, 8)
				binary.BigEndian.PutUint64(out, uint64(b.Depth()))
				return out, nil
			}
			return ret, nil
		},
	})
	env.setCode(t, addrA, codeA)

	outcome, err := env.runner.Call(source, addrA, nil, nil, 10_000_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)
	// the frame at the depth wall saw its sub-call refused
	require.Equal(t, uint64(1024), binary.BigEndian.Uint64(outcome.Output))
}

func TestRunnerTouchedEmptyAccountDropped(t *testing.T) {
	env := newTestEnv(t, nil)

	// a zero-value call to an empty, codeless account leaves no residue
	outcome, err := env.runner.Call(source, addrC, nil, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)

	env.view(t, func(sdb *state.StateDB) {
		exists, err := sdb.Exists(addrC)
		require.NoError(t, err)
		require.False(t, exists)
	})
}

func TestRunnerStorageLimitExceeded(t *testing.T) {
	codeB := []byte("storage-hog")
	slot2 := common.BytesToHash([]byte{2})
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.SetStorage(c.Address, slot1, val1); err != nil {
				return nil, err
			}
			return nil, b.SetStorage(c.Address, slot2, val1)
		},
	})
	env.setCode(t, addrB, codeB)
	// headroom for one entry; the second write overspends
	env.runner.config.StorageLimit = params.StorageEntrySize

	outcome, err := env.runner.Call(source, addrB, nil, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitErrored, outcome.Status)
	require.ErrorIs(t, outcome.Err, ErrOutOfStorage)
	require.Equal(t, uint64(100_000), outcome.UsedGas)
	require.Equal(t, int64(0), outcome.StorageDelta)

	env.view(t, func(sdb *state.StateDB) {
		v, err := sdb.GetState(addrB, slot1)
		require.NoError(t, err)
		require.Equal(t, common.Hash{}, v)
	})
}

func TestRunnerStorageRefundSettlesUnderLimit(t *testing.T) {
	codeB := []byte("storage-swap")
	slot2 := common.BytesToHash([]byte{2})
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			// one new entry, one removed entry: net growth zero
			if err := b.SetStorage(c.Address, slot2, val1); err != nil {
				return nil, err
			}
			return nil, b.SetStorage(c.Address, slot1, common.Hash{})
		},
	})
	env.setCode(t, addrB, codeB)
	env.seed(t, func(sdb *state.StateDB) {
		require.NoError(t, sdb.SetState(addrB, slot1, val1))
	})
	env.runner.config.StorageLimit = 1

	outcome, err := env.runner.Call(source, addrB, nil, nil, 100_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)
	require.Equal(t, int64(0), outcome.StorageDelta)
}

func TestRunnerRevertedChildStorageNotCharged(t *testing.T) {
	codeA := []byte("outer")
	codeB := []byte("inner-hog")
	env := newTestEnv(t, map[string]scriptFunc{
		string(codeA): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			_, _ = b.Call(c.Address, addrB, nil, 50_000, nil, false)
			return nil, nil
		},
		string(codeB): func(b Backend, c *Contract, input []byte) ([]byte, error) {
			if err := b.SetStorage(c.Address, slot1, val1); err != nil {
				return nil, err
			}
			return nil, ErrExecutionReverted
		},
	})
	env.setCode(t, addrA, codeA)
	env.setCode(t, addrB, codeB)
	env.runner.config.StorageLimit = 1

	// the reverted child's charge would blow the limit if it survived
	outcome, err := env.runner.Call(source, addrA, nil, nil, 200_000)
	require.NoError(t, err)
	require.Equal(t, ExitSucceeded, outcome.Status)
	require.Equal(t, int64(0), outcome.StorageDelta)
}

func TestBlockContextTimestampFloorsToSeconds(t *testing.T) {
	ctx := NewBlockContext(1, 1_999, common.Address{}, 0, nil)
	require.Equal(t, uint64(1), ctx.Time)
	ctx = NewBlockContext(1, 2_000, common.Address{}, 0, nil)
	require.Equal(t, uint64(2), ctx.Time)
}
