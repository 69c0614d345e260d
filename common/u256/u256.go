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

// Package u256 holds commonly used small uint256 values. They must never be
// mutated by callers.
package u256

import (
	"github.com/holiman/uint256"
)

var (
	Num0  = uint256.NewInt(0)
	Num1  = uint256.NewInt(1)
	Num2  = uint256.NewInt(2)
	Num4  = uint256.NewInt(4)
	Num8  = uint256.NewInt(8)
	Num32 = uint256.NewInt(32)
)
