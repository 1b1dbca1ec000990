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

// Package operation provides immutable descriptions of database actions and their dispatch.
//
// [Operation] is a closed set of types, one per [Kind]; each carries its own payload.
// Operations are executed with [Commit]. Nothing tracks whether an operation was already committed:
// committing it twice executes the action twice.
package operation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/FerretDB/mongohelper/internal/mongoerrors"
)

// Operation describes one database action.
//
// Only types of this package implement it.
type Operation interface {
	// ID returns identity generated at construction.
	ID() string

	// Kind returns operation kind.
	Kind() Kind

	// Collection returns target collection name.
	Collection() string

	sealed()
}

// header contains fields common for all operations.
type header struct {
	id   string
	coll string
}

func newHeader(coll string) header {
	return header{
		id:   uuid.NewString(),
		coll: coll,
	}
}

// ID implements [Operation].
func (h header) ID() string { return h.id }

// Collection implements [Operation].
func (h header) Collection() string { return h.coll }

func (h header) sealed() {}

// InsertOneOp inserts a single document.
type InsertOneOp struct {
	header
	Document any
}

// InsertManyOp inserts documents in order.
type InsertManyOp struct {
	header
	Documents []any
}

// UpdateOneOp updates the first matching document.
type UpdateOneOp struct {
	header
	Filter any
	Update any
	Upsert bool
}

// UpdateManyOp updates all matching documents.
type UpdateManyOp struct {
	header
	Filter any
	Update any
	Upsert bool
}

// DeleteOneOp deletes the first matching document.
type DeleteOneOp struct {
	header
	Filter any
}

// DeleteManyOp deletes all matching documents.
type DeleteManyOp struct {
	header
	Filter any
}

// FindOneOp returns the first matching document or nothing.
type FindOneOp struct {
	header
	Filter     any
	Projection any
}

// FindManyOp returns all matching documents.
type FindManyOp struct {
	header
	Filter     any
	Projection any
}

// Kind implements [Operation].
func (*InsertOneOp) Kind() Kind { return KindInsertOne }

// Kind implements [Operation].
func (*InsertManyOp) Kind() Kind { return KindInsertMany }

// Kind implements [Operation].
func (*UpdateOneOp) Kind() Kind { return KindUpdateOne }

// Kind implements [Operation].
func (*UpdateManyOp) Kind() Kind { return KindUpdateMany }

// Kind implements [Operation].
func (*DeleteOneOp) Kind() Kind { return KindDeleteOne }

// Kind implements [Operation].
func (*DeleteManyOp) Kind() Kind { return KindDeleteMany }

// Kind implements [Operation].
func (*FindOneOp) Kind() Kind { return KindFindOne }

// Kind implements [Operation].
func (*FindManyOp) Kind() Kind { return KindFindMany }

// NewInsertOne creates a new insert-one operation.
func NewInsertOne(coll string, doc any) *InsertOneOp {
	return &InsertOneOp{header: newHeader(coll), Document: doc}
}

// NewInsertMany creates a new insert-many operation.
func NewInsertMany(coll string, docs []any) *InsertManyOp {
	return &InsertManyOp{header: newHeader(coll), Documents: docs}
}

// NewUpdateOne creates a new update-one operation.
func NewUpdateOne(coll string, filter, update any, upsert bool) *UpdateOneOp {
	return &UpdateOneOp{header: newHeader(coll), Filter: filter, Update: update, Upsert: upsert}
}

// NewUpdateMany creates a new update-many operation.
func NewUpdateMany(coll string, filter, update any, upsert bool) *UpdateManyOp {
	return &UpdateManyOp{header: newHeader(coll), Filter: filter, Update: update, Upsert: upsert}
}

// NewDeleteOne creates a new delete-one operation.
func NewDeleteOne(coll string, filter any) *DeleteOneOp {
	return &DeleteOneOp{header: newHeader(coll), Filter: filter}
}

// NewDeleteMany creates a new delete-many operation.
func NewDeleteMany(coll string, filter any) *DeleteManyOp {
	return &DeleteManyOp{header: newHeader(coll), Filter: filter}
}

// NewFindOne creates a new find-one operation. Projection may be nil.
func NewFindOne(coll string, filter, projection any) *FindOneOp {
	return &FindOneOp{header: newHeader(coll), Filter: filter, Projection: projection}
}

// NewFindMany creates a new find-many operation. Projection may be nil.
func NewFindMany(coll string, filter, projection any) *FindManyOp {
	return &FindManyOp{header: newHeader(coll), Filter: filter, Projection: projection}
}

// Payload contains arguments of any operation kind.
//
// Fields that are not used by the kind are ignored.
type Payload struct {
	Filter     any
	Update     any
	Document   any
	Documents  []any
	Projection any
	Upsert     bool
}

// Make creates a new operation of the given kind.
//
// It returns [mongoerrors.ErrUnsupportedOperation] for unknown kinds.
// Payload is not validated; invalid payload is reported by [Commit].
func Make(kind Kind, coll string, p Payload) (Operation, error) {
	switch kind {
	case KindInsertOne:
		return NewInsertOne(coll, p.Document), nil
	case KindInsertMany:
		return NewInsertMany(coll, p.Documents), nil
	case KindUpdateOne:
		return NewUpdateOne(coll, p.Filter, p.Update, p.Upsert), nil
	case KindUpdateMany:
		return NewUpdateMany(coll, p.Filter, p.Update, p.Upsert), nil
	case KindDeleteOne:
		return NewDeleteOne(coll, p.Filter), nil
	case KindDeleteMany:
		return NewDeleteMany(coll, p.Filter), nil
	case KindFindOne:
		return NewFindOne(coll, p.Filter, p.Projection), nil
	case KindFindMany:
		return NewFindMany(coll, p.Filter, p.Projection), nil
	default:
		return nil, mongoerrors.New(mongoerrors.ErrUnsupportedOperation, fmt.Sprintf("unsupported operation kind %s", kind))
	}
}

// check interfaces
var (
	_ Operation = (*InsertOneOp)(nil)
	_ Operation = (*InsertManyOp)(nil)
	_ Operation = (*UpdateOneOp)(nil)
	_ Operation = (*UpdateManyOp)(nil)
	_ Operation = (*DeleteOneOp)(nil)
	_ Operation = (*DeleteManyOp)(nil)
	_ Operation = (*FindOneOp)(nil)
	_ Operation = (*FindManyOp)(nil)
)
