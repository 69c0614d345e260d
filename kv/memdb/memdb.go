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

// Package memdb is the in-memory kv.StateStore. Each table is a
// copy-on-write btree, so opening a transactional scope is an O(1) clone of
// the table set and rollback is simply dropping the clone. This gives the
// nested Begin/Commit/Rollback semantics the substate stack requires without
// any undo log.
package memdb

import (
	"fmt"
	"strings"

	"github.com/tidwall/btree"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/kv"
)

type tables map[string]*btree.Map[string, []byte]

func (t tables) clone() tables {
	c := make(tables, len(t))
	for name, m := range t {
		c[name] = m.Copy()
	}
	return c
}

// DB implements kv.StateStore.
type DB struct {
	tables tables
	child  *tx
	closed bool
}

// New creates an empty store with the state schema tables.
func New() *DB {
	t := make(tables, len(kv.StateTables))
	for _, name := range kv.StateTables {
		t[name] = btree.NewMap[string, []byte](32)
	}
	return &DB{tables: t}
}

// Begin implements kv.StateStore.
func (db *DB) Begin() (kv.Tx, error) {
	if db.closed {
		return nil, kv.ErrTxDone
	}
	t := &tx{db: db, tables: db.tables.clone()}
	db.child = t
	return t, nil
}

// Close implements kv.StateStore. Open transactions are abandoned.
func (db *DB) Close() {
	db.closed = true
	db.tables = nil
	db.child = nil
}

type tx struct {
	db     *DB // non-nil for a root scope
	parent *tx // non-nil for a nested scope
	tables tables
	child  *tx
	done   bool
}

func (t *tx) table(name string) (*btree.Map[string, []byte], error) {
	m, ok := t.tables[name]
	if !ok {
		return nil, fmt.Errorf("memdb: unknown table %q", name)
	}
	return m, nil
}

func (t *tx) GetOne(table string, key []byte) ([]byte, error) {
	if t.done {
		return nil, kv.ErrTxDone
	}
	m, err := t.table(table)
	if err != nil {
		return nil, err
	}
	v, ok := m.Get(string(key))
	if !ok {
		return nil, nil
	}
	return common.Copy(v), nil
}

func (t *tx) Has(table string, key []byte) (bool, error) {
	if t.done {
		return false, kv.ErrTxDone
	}
	m, err := t.table(table)
	if err != nil {
		return false, err
	}
	_, ok := m.Get(string(key))
	return ok, nil
}

func (t *tx) ForPrefix(table string, prefix []byte, walker func(k, v []byte) error) error {
	if t.done {
		return kv.ErrTxDone
	}
	m, err := t.table(table)
	if err != nil {
		return err
	}
	p := string(prefix)
	var walkErr error
	m.Ascend(p, func(k string, v []byte) bool {
		if !strings.HasPrefix(k, p) {
			return false
		}
		if walkErr = walker([]byte(k), common.Copy(v)); walkErr != nil {
			return false
		}
		return true
	})
	return walkErr
}

func (t *tx) Put(table string, key, value []byte) error {
	if t.done {
		return kv.ErrTxDone
	}
	m, err := t.table(table)
	if err != nil {
		return err
	}
	m.Set(string(key), common.Copy(value))
	return nil
}

func (t *tx) Delete(table string, key []byte) error {
	if t.done {
		return kv.ErrTxDone
	}
	m, err := t.table(table)
	if err != nil {
		return err
	}
	m.Delete(string(key))
	return nil
}

func (t *tx) Begin() (kv.Tx, error) {
	if t.done {
		return nil, kv.ErrTxDone
	}
	child := &tx{parent: t, tables: t.tables.clone()}
	t.child = child
	return child, nil
}

func (t *tx) Commit() error {
	if t.done {
		return kv.ErrTxDone
	}
	if t.child != nil && !t.child.done {
		return kv.ErrTxHasChild
	}
	if t.parent != nil {
		t.parent.tables = t.tables
		t.parent.child = nil
	} else {
		t.db.tables = t.tables
		t.db.child = nil
	}
	t.done = true
	t.tables = nil
	return nil
}

func (t *tx) Rollback() {
	if t.done {
		return
	}
	// drop descendants first so their late Rollback is a no-op
	for c := t.child; c != nil; c = c.child {
		c.done = true
	}
	if t.parent != nil {
		t.parent.child = nil
	} else {
		t.db.child = nil
	}
	t.done = true
	t.tables = nil
}
