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

package mongoerrors

import "fmt"

// OperationError annotates an error returned while committing one operation of a batch
// with the operation's identity.
//
// The original error is available via [errors.Unwrap], [errors.Is] and [errors.As] unchanged.
type OperationError struct {
	// Position of the operation in the batch.
	Index int

	ID         string
	Kind       string
	Collection string

	Err error
}

// Error implements error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("operation #%d %s (%s on %q): %v", e.Index, e.ID, e.Kind, e.Collection, e.Err)
}

// Unwrap returns the original error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// check interfaces
var (
	_ error = (*OperationError)(nil)
)
