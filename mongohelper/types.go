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

package mongohelper

import (
	"github.com/FerretDB/mongohelper/internal/collection"
	"github.com/FerretDB/mongohelper/internal/config"
	"github.com/FerretDB/mongohelper/internal/conn"
	"github.com/FerretDB/mongohelper/internal/consumer"
	"github.com/FerretDB/mongohelper/internal/mongoerrors"
	"github.com/FerretDB/mongohelper/internal/txn"
)

type (
	// Connection is the shared connection.
	Connection = conn.Connection

	// Consumer is a handle bound to one database of the shared connection.
	Consumer = consumer.Consumer

	// Handle exposes operations of one collection.
	Handle = collection.Handle

	// Duplicate is a group of documents with the same field value; see [Handle.FindDuplicates].
	Duplicate = collection.Duplicate

	// Keying determines how collection handles are cached.
	Keying = collection.Keying

	// Result is the outcome of one operation of a batch.
	Result = txn.Result

	// ErrorCode represents error codes of this package.
	ErrorCode = mongoerrors.Code

	// Error is an error with [ErrorCode].
	Error = mongoerrors.Error

	// OperationError annotates the original error with the failed operation of a batch.
	OperationError = mongoerrors.OperationError
)

// Collection handles cache keying.
const (
	KeyByName      = collection.KeyByName
	KeyByNamespace = collection.KeyByNamespace
)

// Error codes.
const (
	ErrConfiguration           = mongoerrors.ErrConfiguration
	ErrConnection              = mongoerrors.ErrConnection
	ErrUnsupportedOperation    = mongoerrors.ErrUnsupportedOperation
	ErrDuplicateInitialization = mongoerrors.ErrDuplicateInitialization
	ErrConsumerClosed          = mongoerrors.ErrConsumerClosed
)

// IsError reports whether err is an [*Error] (possibly wrapped) with the given code.
func IsError(err error, code ErrorCode) bool {
	return mongoerrors.Is(err, code)
}

// URIEnvVars lists environment variables with connection URI, in priority order.
var URIEnvVars = config.URIEnvVars

// Recognized environment variables.
const (
	DatabaseEnvVar   = config.DatabaseEnvVar
	ReplicaSetEnvVar = config.ReplicaSetEnvVar
)
