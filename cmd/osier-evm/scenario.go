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

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/core/state"
	"github.com/osiertech/osier-evm/core/vm"
	"github.com/osiertech/osier-evm/kv/memdb"
)

// Scenario is one executable fixture: a seeded world plus a sequence of
// dispatches against it.
type Scenario struct {
	Name        string `toml:"name" yaml:"name"`
	ChainID     uint64 `toml:"chain_id" yaml:"chain_id"`
	BlockNumber uint64 `toml:"block_number" yaml:"block_number"`
	TimestampMs uint64 `toml:"timestamp_ms" yaml:"timestamp_ms"`
	GasLimit    uint64 `toml:"gas_limit" yaml:"gas_limit"`
	// StorageLimit caps net ledger growth per dispatch; zero is unmetered.
	StorageLimit uint64        `toml:"storage_limit" yaml:"storage_limit"`
	Coinbase     string        `toml:"coinbase" yaml:"coinbase"`
	Accounts     []AccountSeed `toml:"accounts" yaml:"accounts"`
	Ops          []Op          `toml:"ops" yaml:"ops"`
}

// AccountSeed pre-funds one account before the first dispatch.
type AccountSeed struct {
	Address string            `toml:"address" yaml:"address"`
	Balance string            `toml:"balance" yaml:"balance"`
	Nonce   uint64            `toml:"nonce" yaml:"nonce"`
	Code    string            `toml:"code" yaml:"code"`
	Storage map[string]string `toml:"storage" yaml:"storage"`
}

// Op is one dispatch: call, create, create2 or create_at.
type Op struct {
	Type     string `toml:"type" yaml:"type"`
	From     string `toml:"from" yaml:"from"`
	To       string `toml:"to" yaml:"to"`
	Value    string `toml:"value" yaml:"value"`
	GasLimit uint64 `toml:"gas_limit" yaml:"gas_limit"`
	Input    string `toml:"input" yaml:"input"`
	Salt     string `toml:"salt" yaml:"salt"`
}

// OpResult is the printable outcome of one dispatch.
type OpResult struct {
	Status         string      `json:"status"`
	Error          string      `json:"error,omitempty"`
	Output         string      `json:"output,omitempty"`
	UsedGas        uint64      `json:"usedGas"`
	StorageDelta   int64       `json:"storageDelta,omitempty"`
	CreatedAddress string      `json:"createdAddress,omitempty"`
	Logs           []LogResult `json:"logs,omitempty"`
}

// LogResult is one emitted log in the printable outcome.
type LogResult struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// ScenarioResult is the printable outcome of one scenario file.
type ScenarioResult struct {
	File    string     `json:"file"`
	Name    string     `json:"name,omitempty"`
	Results []OpResult `json:"results"`
}

// loadScenario reads and decodes a scenario file by extension.
func loadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		err = toml.Unmarshal(raw, &s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &s)
	default:
		err = errors.New("scenario files only accepted are .yaml and .toml")
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &s, nil
}

// runScenario executes the scenario against a fresh in-memory store.
func runScenario(path string, maxCodeSize int, logger *zap.Logger) (*ScenarioResult, error) {
	s, err := loadScenario(path)
	if err != nil {
		return nil, err
	}

	db := memdb.New()
	defer db.Close()

	if err := seedAccounts(db, s.Accounts); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}

	gasLimit := s.GasLimit
	if gasLimit == 0 {
		gasLimit = 30_000_000
	}
	coinbase, err := parseAddress(s.Coinbase, common.Address{})
	if err != nil {
		return nil, err
	}
	blockCtx := vm.NewBlockContext(s.BlockNumber, s.TimestampMs, coinbase, gasLimit, uint256.NewInt(s.ChainID))
	runner := vm.NewRunner(db, blockCtx, vm.Config{MaxCodeSize: maxCodeSize, StorageLimit: s.StorageLimit}, logger.Named("runner"))

	result := &ScenarioResult{File: path, Name: s.Name}
	for i := range s.Ops {
		res, err := runOp(runner, &s.Ops[i])
		if err != nil {
			return nil, fmt.Errorf("%s op %d: %w", path, i, err)
		}
		result.Results = append(result.Results, *res)
	}
	return result, nil
}

func seedAccounts(db *memdb.DB, seeds []AccountSeed) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sdb := state.New(tx, state.NewCodeCache())
	for _, seed := range seeds {
		addr, err := parseAddress(seed.Address, common.Address{})
		if err != nil {
			return err
		}
		if seed.Balance != "" {
			balance, err := parseValue(seed.Balance)
			if err != nil {
				return err
			}
			if err := sdb.AddBalance(addr, balance); err != nil {
				return err
			}
		}
		if seed.Nonce > 0 {
			if err := sdb.SetNonce(addr, seed.Nonce); err != nil {
				return err
			}
		}
		if seed.Code != "" {
			if _, err := sdb.SetCode(addr, common.FromHex(seed.Code)); err != nil {
				return err
			}
		}
		for k, v := range seed.Storage {
			key := common.BytesToHash(common.FromHex(k))
			val := common.BytesToHash(common.FromHex(v))
			if err := sdb.SetState(addr, key, val); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func runOp(runner *vm.Runner, op *Op) (*OpResult, error) {
	from, err := parseAddress(op.From, common.Address{})
	if err != nil {
		return nil, err
	}
	value, err := parseValue(op.Value)
	if err != nil {
		return nil, err
	}
	gasLimit := op.GasLimit
	if gasLimit == 0 {
		gasLimit = 10_000_000
	}
	input := common.FromHex(op.Input)

	var outcome *vm.ExecutionOutcome
	switch strings.ToLower(op.Type) {
	case "call", "":
		to, err := parseAddress(op.To, common.Address{})
		if err != nil {
			return nil, err
		}
		outcome, err = runner.Call(from, to, input, value, gasLimit)
		if err != nil && outcome == nil {
			return nil, err
		}
	case "create":
		outcome, err = runner.Create(from, input, value, gasLimit)
		if err != nil && outcome == nil {
			return nil, err
		}
	case "create2":
		salt := common.BytesToHash(common.FromHex(op.Salt))
		outcome, err = runner.Create2(from, input, salt, value, gasLimit)
		if err != nil && outcome == nil {
			return nil, err
		}
	case "create_at":
		to, err := parseAddress(op.To, common.Address{})
		if err != nil {
			return nil, err
		}
		outcome, err = runner.CreateAtAddress(from, to, input, value, gasLimit)
		if err != nil && outcome == nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown op type %q", op.Type)
	}
	return opResult(outcome), nil
}

func opResult(outcome *vm.ExecutionOutcome) *OpResult {
	res := &OpResult{
		Status:       outcome.Status.String(),
		UsedGas:      outcome.UsedGas,
		StorageDelta: outcome.StorageDelta,
	}
	if outcome.Err != nil {
		res.Error = outcome.Err.Error()
	}
	if len(outcome.Output) > 0 {
		res.Output = "0x" + common.Bytes2Hex(outcome.Output)
	}
	if outcome.CreatedAddress != nil {
		res.CreatedAddress = outcome.CreatedAddress.Hex()
	}
	for _, l := range outcome.Logs {
		lr := LogResult{Address: l.Address.Hex()}
		for _, topic := range l.Topics {
			lr.Topics = append(lr.Topics, topic.Hex())
		}
		if len(l.Data) > 0 {
			lr.Data = "0x" + common.Bytes2Hex(l.Data)
		}
		res.Logs = append(res.Logs, lr)
	}
	return res
}

func parseAddress(s string, def common.Address) (common.Address, error) {
	if s == "" {
		return def, nil
	}
	b := common.FromHex(s)
	if len(b) != 20 {
		return common.Address{}, fmt.Errorf("bad address %q", s)
	}
	return common.BytesToAddress(b), nil
}

// parseValue accepts decimal or 0x-prefixed hex amounts.
func parseValue(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return uint256.FromHex(s)
	}
	return uint256.FromDecimal(s)
}
