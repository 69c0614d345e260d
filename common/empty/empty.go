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

// Package empty holds the well-known hashes of empty values.
package empty

import (
	"github.com/osiertech/osier-evm/common"
)

var (
	// CodeHash is keccak256 of nil, the code hash of an account without code.
	CodeHash = common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	// RootHash is the root of an empty storage trie, keccak256 of the RLP of nil.
	RootHash = common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
)
