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

package vm

import (
	"errors"
	"fmt"
)

// Recoverable errors. Any of these terminates the current frame with a
// classified exit and propagates to the parent as an ordinary result.
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrInvalidCode              = errors.New("invalid code")
	ErrNonceUintOverflow        = errors.New("nonce uint64 overflow")
	ErrGasUintOverflow          = errors.New("gas uint64 overflow")
	ErrWriteProtection          = errors.New("write protection")
	ErrCreateEmpty              = errors.New("create on empty target")
	ErrOutOfStorage             = errors.New("out of storage")

	// Errors the interpreter stepper reports through the engine's capability
	// surface. The engine never raises these itself but classifies them when
	// they come back from a frame.
	ErrStackOverflow         = errors.New("stack overflow")
	ErrStackUnderflow        = errors.New("stack underflow")
	ErrInvalidJump           = errors.New("invalid jump destination")
	ErrInvalidRange          = errors.New("invalid memory range")
	ErrInvalidOpcode         = errors.New("invalid opcode")
	ErrReturnDataOutOfBounds = errors.New("return data out of bounds")
)

// ErrExecutionReverted is the contract intentionally aborting. State of the
// frame is rolled back, but the returned bytes are preserved for the caller.
var ErrExecutionReverted = errors.New("execution reverted")

// FatalError wraps an error that must never be contained at a frame
// boundary: it marks the gas meters permanently failed and aborts the whole
// root call tree.
type FatalError struct {
	Err error
}

func (e FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e FatalError) Unwrap() error { return e.Err }

// Fatal wraps err as a fatal error. A nil err stays nil; an already fatal
// err is returned unchanged.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	var fe FatalError
	if errors.As(err, &fe) {
		return err
	}
	return FatalError{Err: err}
}

// IsFatal reports whether err is (or wraps) a fatal error.
func IsFatal(err error) bool {
	var fe FatalError
	return errors.As(err, &fe)
}
