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

// Package length holds the lengths of the core fixed-size types in bytes.
package length

const (
	// Hash is the expected length of a 32 byte hash.
	Hash = 32
	// Addr is the expected length of an address.
	Addr = 20
	// BlockNum is the expected length of a big-endian block number.
	BlockNum = 8
	// Word is the size of one EVM machine word.
	Word = 32
)
