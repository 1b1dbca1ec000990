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
	"github.com/FerretDB/mongohelper/internal/operation"
)

type (
	// Operation is an immutable description of one database action.
	Operation = operation.Operation

	// Kind is an operation kind.
	Kind = operation.Kind

	// Payload contains arguments for [MakeOperation].
	Payload = operation.Payload
)

// Operation kinds.
const (
	KindInsertOne  = operation.KindInsertOne
	KindInsertMany = operation.KindInsertMany
	KindUpdateOne  = operation.KindUpdateOne
	KindUpdateMany = operation.KindUpdateMany
	KindDeleteOne  = operation.KindDeleteOne
	KindDeleteMany = operation.KindDeleteMany
	KindFindOne    = operation.KindFindOne
	KindFindMany   = operation.KindFindMany
)

// ParseKind returns operation kind by name, like "update-many".
func ParseKind(s string) (Kind, error) {
	return operation.ParseKind(s)
}

// MakeOperation creates an operation of the given kind.
//
// Only payload fields used by the kind are taken. Unknown kinds return [ErrUnsupportedOperation] error.
func MakeOperation(kind Kind, coll string, p Payload) (Operation, error) {
	return operation.Make(kind, coll, p)
}

// InsertOne returns an operation inserting doc.
func InsertOne(coll string, doc any) Operation {
	return operation.NewInsertOne(coll, doc)
}

// InsertMany returns an operation inserting docs in order.
func InsertMany(coll string, docs []any) Operation {
	return operation.NewInsertMany(coll, docs)
}

// UpdateOne returns an operation updating the first document matching filter.
func UpdateOne(coll string, filter, update any, upsert bool) Operation {
	return operation.NewUpdateOne(coll, filter, update, upsert)
}

// UpdateMany returns an operation updating all documents matching filter.
func UpdateMany(coll string, filter, update any, upsert bool) Operation {
	return operation.NewUpdateMany(coll, filter, update, upsert)
}

// DeleteOne returns an operation deleting the first document matching filter.
func DeleteOne(coll string, filter any) Operation {
	return operation.NewDeleteOne(coll, filter)
}

// DeleteMany returns an operation deleting all documents matching filter.
func DeleteMany(coll string, filter any) Operation {
	return operation.NewDeleteMany(coll, filter)
}

// FindOne returns an operation finding the first document matching filter.
// Projection may be nil.
func FindOne(coll string, filter, projection any) Operation {
	return operation.NewFindOne(coll, filter, projection)
}

// FindMany returns an operation finding all documents matching filter.
// Projection may be nil.
func FindMany(coll string, filter, projection any) Operation {
	return operation.NewFindMany(coll, filter, projection)
}
