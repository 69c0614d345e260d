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

package kv

const (
	// Accounts stores the account fieldset keyed by address.
	Accounts = "Account"
	// Storage stores contract storage, keyed by address ++ slot key.
	// Absent means the zero word; writing the zero word deletes the record.
	Storage = "Storage"
	// Code stores contract bytecode keyed by code hash.
	Code = "Code"
)

// StateTables lists every table of the execution state schema.
var StateTables = []string{Accounts, Storage, Code}
