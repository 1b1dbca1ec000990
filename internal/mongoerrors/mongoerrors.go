// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mongoerrors provides error types and codes of the client lifecycle layer.
//
// Errors returned by the MongoDB driver itself (write conflicts, duplicate keys, aborted transactions, etc.)
// are never converted to those types; they are returned as is, possibly annotated with [OperationError].
package mongoerrors

import (
	"errors"
	"fmt"
)

//go:generate go run golang.org/x/tools/cmd/stringer@v0.19.0 -linecomment -type Code

// Code represents error code.
type Code int32

const (
	errUnset = Code(0) // Unset

	// ErrConfiguration indicates that no usable connection URI or required setting was found.
	ErrConfiguration = Code(1) // Configuration

	// ErrConnection indicates that the connection attempt failed (unreachable host, auth failure, etc.).
	ErrConnection = Code(2) // Connection

	// ErrUnsupportedOperation indicates an unrecognized operation kind.
	ErrUnsupportedOperation = Code(3) // UnsupportedOperation

	// ErrDuplicateInitialization indicates a repeated explicit connect attempt.
	// It is never returned by exported functions; the attempt is logged and ignored instead.
	ErrDuplicateInitialization = Code(4) // DuplicateInitialization

	// ErrConsumerClosed indicates that a closed consumer was used for a batch.
	ErrConsumerClosed = Code(5) // ConsumerClosed
)

// Error represents an error of the client lifecycle layer.
type Error struct {
	Code    Code
	Message string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// New creates a new Error.
func New(code Code, msg string) *Error {
	if code <= 0 {
		panic(fmt.Sprintf("invalid error code: %d", code))
	}

	return &Error{
		Code:    code,
		Message: msg,
	}
}

// Wrap creates a new Error with the given code that wraps err.
//
// Err can't be nil.
func Wrap(code Code, msg string, err error) *Error {
	if err == nil {
		panic("err is nil")
	}

	e := New(code, msg)
	e.Wrapped = err

	return e
}

// Error implements error interface.
func (e *Error) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("%[1]s (%[1]d): %[2]s", e.Code, e.Message)
	}

	return fmt.Sprintf("%[1]s (%[1]d): %[2]s: %[3]v", e.Code, e.Message, e.Wrapped)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether err is an [*Error] (possibly wrapped) with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Code == code
}

// check interfaces
var (
	_ error = (*Error)(nil)
)
