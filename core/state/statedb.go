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

// Package state reads and writes accounts, code and storage through one
// kv transactional scope. The execution engine rebinds a StateDB to the
// scope of whichever call frame is currently on top, so rollback semantics
// come entirely from the kv layer.
package state

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/common/length"
	"github.com/osiertech/osier-evm/crypto"
	"github.com/osiertech/osier-evm/kv"
)

// ErrInsufficientBalance is returned by SubBalance when the account cannot
// cover the amount.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

const codeCacheSize = 1024

// CodeCache caches contract bytecode by code hash. Safe to share between
// StateDBs bound to different scopes, since code is immutable once written.
type CodeCache = lru.Cache[common.Hash, []byte]

// NewCodeCache creates a code cache of the default size.
func NewCodeCache() *CodeCache {
	cache, err := lru.New[common.Hash, []byte](codeCacheSize)
	if err != nil {
		panic(err) // only fails on non-positive size
	}
	return cache
}

// StateDB exposes account-level operations over one transactional scope.
type StateDB struct {
	tx        kv.Tx
	codeCache *CodeCache
}

// New creates a StateDB bound to tx. A nil codeCache gets a fresh one.
func New(tx kv.Tx, codeCache *CodeCache) *StateDB {
	if codeCache == nil {
		codeCache = NewCodeCache()
	}
	return &StateDB{tx: tx, codeCache: codeCache}
}

// SetTx rebinds the StateDB to another scope.
func (sdb *StateDB) SetTx(tx kv.Tx) { sdb.tx = tx }

// Tx returns the currently bound scope.
func (sdb *StateDB) Tx() kv.Tx { return sdb.tx }

// GetAccount reads the account. The second return is false when the account
// record does not exist; the returned account is then the empty account.
func (sdb *StateDB) GetAccount(addr common.Address) (Account, bool, error) {
	enc, err := sdb.tx.GetOne(kv.Accounts, addr[:])
	if err != nil {
		return Account{}, false, err
	}
	if enc == nil {
		return NewEmptyAccount(), false, nil
	}
	var acc Account
	if err := acc.DecodeForStorage(enc); err != nil {
		return Account{}, false, fmt.Errorf("account %x: %w", addr, err)
	}
	return acc, true, nil
}

// UpdateAccount writes the account record.
func (sdb *StateDB) UpdateAccount(addr common.Address, acc *Account) error {
	buf := make([]byte, acc.EncodingLength())
	acc.EncodeForStorage(buf)
	return sdb.tx.Put(kv.Accounts, addr[:], buf)
}

// DeleteAccount removes the account record and all of its storage. Code
// stays in the code table; it is unreachable without the account record.
func (sdb *StateDB) DeleteAccount(addr common.Address) error {
	if err := sdb.ClearStorage(addr); err != nil {
		return err
	}
	return sdb.tx.Delete(kv.Accounts, addr[:])
}

// Exists reports whether the account record exists.
func (sdb *StateDB) Exists(addr common.Address) (bool, error) {
	return sdb.tx.Has(kv.Accounts, addr[:])
}

// Empty reports whether the account is absent or empty (zero nonce, zero
// balance, no code).
func (sdb *StateDB) Empty(addr common.Address) (bool, error) {
	acc, ok, err := sdb.GetAccount(addr)
	if err != nil {
		return false, err
	}
	return !ok || acc.IsEmpty(), nil
}

// GetBalance returns the account balance, zero for absent accounts.
func (sdb *StateDB) GetBalance(addr common.Address) (uint256.Int, error) {
	acc, _, err := sdb.GetAccount(addr)
	if err != nil {
		return uint256.Int{}, err
	}
	return acc.Balance, nil
}

// AddBalance credits amount to the account, creating the record if needed.
func (sdb *StateDB) AddBalance(addr common.Address, amount *uint256.Int) error {
	acc, _, err := sdb.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.Balance.Add(&acc.Balance, amount)
	return sdb.UpdateAccount(addr, &acc)
}

// SubBalance debits amount from the account. Fails with
// ErrInsufficientBalance if the balance cannot cover it.
func (sdb *StateDB) SubBalance(addr common.Address, amount *uint256.Int) error {
	acc, _, err := sdb.GetAccount(addr)
	if err != nil {
		return err
	}
	if acc.Balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	acc.Balance.Sub(&acc.Balance, amount)
	return sdb.UpdateAccount(addr, &acc)
}

// GetNonce returns the account nonce, zero for absent accounts.
func (sdb *StateDB) GetNonce(addr common.Address) (uint64, error) {
	acc, _, err := sdb.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// SetNonce writes the account nonce, creating the record if needed.
func (sdb *StateDB) SetNonce(addr common.Address, nonce uint64) error {
	acc, _, err := sdb.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.Nonce = nonce
	return sdb.UpdateAccount(addr, &acc)
}

// GetCodeHash returns the code hash of the account, the zero hash for
// absent accounts and the empty code hash for accounts without code.
func (sdb *StateDB) GetCodeHash(addr common.Address) (common.Hash, error) {
	acc, ok, err := sdb.GetAccount(addr)
	if err != nil {
		return common.Hash{}, err
	}
	if !ok {
		return common.Hash{}, nil
	}
	return acc.CodeHash, nil
}

// GetCode returns the account's bytecode, nil when there is none.
func (sdb *StateDB) GetCode(addr common.Address) ([]byte, error) {
	acc, ok, err := sdb.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok || !acc.HasCode() {
		return nil, nil
	}
	if code, hit := sdb.codeCache.Get(acc.CodeHash); hit {
		return code, nil
	}
	code, err := sdb.tx.GetOne(kv.Code, acc.CodeHash[:])
	if err != nil {
		return nil, err
	}
	if code != nil {
		sdb.codeCache.Add(acc.CodeHash, code)
	}
	return code, nil
}

// GetCodeSize returns the byte length of the account's code.
func (sdb *StateDB) GetCodeSize(addr common.Address) (int, error) {
	code, err := sdb.GetCode(addr)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

// SetCode installs code on the account and returns the code hash.
// The engine guarantees this happens at most once per account, as the
// terminal step of a successful create.
func (sdb *StateDB) SetCode(addr common.Address, code []byte) (common.Hash, error) {
	codeHash := crypto.Keccak256Hash(code)
	if err := sdb.tx.Put(kv.Code, codeHash[:], code); err != nil {
		return common.Hash{}, err
	}
	acc, _, err := sdb.GetAccount(addr)
	if err != nil {
		return common.Hash{}, err
	}
	acc.CodeHash = codeHash
	if err := sdb.UpdateAccount(addr, &acc); err != nil {
		return common.Hash{}, err
	}
	return codeHash, nil
}

// GetState reads a storage slot; absent slots read as the zero word.
func (sdb *StateDB) GetState(addr common.Address, key common.Hash) (common.Hash, error) {
	v, err := sdb.tx.GetOne(kv.Storage, storageKey(addr, key))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(v), nil
}

// SetState writes a storage slot; the zero word deletes the record.
func (sdb *StateDB) SetState(addr common.Address, key common.Hash, value common.Hash) error {
	k := storageKey(addr, key)
	if value.IsZero() {
		return sdb.tx.Delete(kv.Storage, k)
	}
	return sdb.tx.Put(kv.Storage, k, value[:])
}

// HasStorage reports whether the account has any storage records.
func (sdb *StateDB) HasStorage(addr common.Address) (bool, error) {
	found := false
	err := sdb.tx.ForPrefix(kv.Storage, addr[:], func(k, v []byte) error {
		found = true
		return errStopWalk
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return false, err
	}
	return found, nil
}

// ClearStorage removes every storage record of the account.
func (sdb *StateDB) ClearStorage(addr common.Address) error {
	var keys [][]byte
	if err := sdb.tx.ForPrefix(kv.Storage, addr[:], func(k, v []byte) error {
		keys = append(keys, common.Copy(k))
		return nil
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := sdb.tx.Delete(kv.Storage, k); err != nil {
			return err
		}
	}
	return nil
}

var errStopWalk = errors.New("stop walk")

func storageKey(addr common.Address, key common.Hash) []byte {
	k := make([]byte, length.Addr+length.Hash)
	copy(k, addr[:])
	copy(k[length.Addr:], key[:])
	return k
}
