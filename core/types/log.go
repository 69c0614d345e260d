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

package types

import (
	"github.com/osiertech/osier-evm/common"
)

// Log is an event emitted by a contract. Logs are append-only and ordered
// within a transaction; they become observable only when the root call frame
// commits.
type Log struct {
	// Address of the contract that generated the event.
	Address common.Address `json:"address"`
	// Topics the log is indexed by.
	Topics []common.Hash `json:"topics"`
	// Data carries the opaque log payload.
	Data []byte `json:"data"`
}

// Copy returns a deep copy of the log.
func (l *Log) Copy() *Log {
	topics := make([]common.Hash, len(l.Topics))
	copy(topics, l.Topics)
	return &Log{
		Address: l.Address,
		Topics:  topics,
		Data:    common.Copy(l.Data),
	}
}
