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

package memdb

import (
	"testing"

	"github.com/osiertech/osier-evm/kv"
)

// NewTestStore creates a store that is closed when the test finishes.
func NewTestStore(tb testing.TB) *DB {
	tb.Helper()
	db := New()
	tb.Cleanup(db.Close)
	return db
}

// NewTestTx creates a store together with an open root transaction.
func NewTestTx(tb testing.TB) (*DB, kv.Tx) {
	tb.Helper()
	db := New()
	tb.Cleanup(db.Close)
	tx, err := db.Begin()
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(tx.Rollback)
	return db, tx
}
