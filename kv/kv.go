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

// Package kv defines the transactional key-value ledger the execution engine
// runs against. Transactions nest: Begin on a Tx opens a child scope whose
// writes become visible to the parent only on Commit. The engine opens one
// scope per call frame, so a reverted frame is undone by dropping its scope.
package kv

import (
	"errors"
)

var (
	// ErrTxDone is returned when using a transaction that was already
	// committed or rolled back.
	ErrTxDone = errors.New("kv: transaction has already been resolved")
	// ErrTxHasChild is returned when committing a transaction while a child
	// transaction is still open.
	ErrTxHasChild = errors.New("kv: child transaction still open")
)

// Getter wraps the read methods of a transaction.
type Getter interface {
	// GetOne returns the value of the key in the given table, or nil if the
	// key is absent.
	GetOne(table string, key []byte) ([]byte, error)

	// Has reports whether the key exists in the given table.
	Has(table string, key []byte) (bool, error)

	// ForPrefix walks all pairs whose key starts with prefix, in ascending
	// key order. Returning an error from walker stops the walk.
	ForPrefix(table string, prefix []byte, walker func(k, v []byte) error) error
}

// Putter wraps the write methods of a transaction.
type Putter interface {
	// Put inserts or updates a single key. Value is copied.
	Put(table string, key, value []byte) error

	// Delete removes a single key. Deleting an absent key is not an error.
	Delete(table string, key []byte) error
}

// Tx is one transactional scope over the store. A Tx is not safe for
// concurrent use; the engine is single-threaded by design.
type Tx interface {
	Getter
	Putter

	// Begin opens a child scope. The parent must not be used until the
	// child is resolved.
	Begin() (Tx, error)

	// Commit folds this scope's writes into the parent (or the store, for
	// a root scope) and invalidates the Tx.
	Commit() error

	// Rollback drops this scope's writes and invalidates the Tx.
	// Rollback on an already resolved Tx is a no-op.
	Rollback()
}

// StateStore is the ledger the engine mutates through nested scopes.
type StateStore interface {
	// Begin opens a root transactional scope.
	Begin() (Tx, error)

	// Close releases the store.
	Close()
}
