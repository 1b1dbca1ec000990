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

// Package optest provides helpers for testing operation execution without a database.
package optest

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FerretDB/mongohelper/internal/operation"
)

// Call represents a recorded call of the [Target] method.
type Call struct {
	Method string
	Args   []any
}

// Target is an in-memory [operation.Target] that records calls.
//
// Inserted documents are appended to Docs; updates, deletes and finds do not look at them
// except FindOne and FindAll, which return stored documents.
type Target struct {
	// Errors to return from the given methods instead of executing them.
	Errors map[string]error

	m     sync.Mutex
	calls []Call
	docs  []any
}

// NewTarget creates a new Target.
func NewTarget() *Target {
	return &Target{
		Errors: map[string]error{},
	}
}

// Calls returns recorded calls.
func (t *Target) Calls() []Call {
	t.m.Lock()
	defer t.m.Unlock()

	return append([]Call(nil), t.calls...)
}

// Methods returns names of called methods in order.
func (t *Target) Methods() []string {
	calls := t.Calls()

	res := make([]string, len(calls))
	for i, c := range calls {
		res[i] = c.Method
	}

	return res
}

// Docs returns inserted documents.
func (t *Target) Docs() []any {
	t.m.Lock()
	defer t.m.Unlock()

	return append([]any(nil), t.docs...)
}

// record records the call and returns the configured error, if any.
func (t *Target) record(method string, args ...any) error {
	t.m.Lock()
	defer t.m.Unlock()

	t.calls = append(t.calls, Call{Method: method, Args: args})

	return t.Errors[method]
}

// InsertOne implements [operation.Target].
func (t *Target) InsertOne(_ context.Context, doc any) (*mongo.InsertOneResult, error) {
	if err := t.record("InsertOne", doc); err != nil {
		return nil, err
	}

	t.m.Lock()
	defer t.m.Unlock()

	t.docs = append(t.docs, doc)

	return &mongo.InsertOneResult{InsertedID: int32(len(t.docs))}, nil
}

// InsertMany implements [operation.Target].
func (t *Target) InsertMany(_ context.Context, docs []any) (*mongo.InsertManyResult, error) {
	if err := t.record("InsertMany", docs); err != nil {
		return nil, err
	}

	t.m.Lock()
	defer t.m.Unlock()

	res := new(mongo.InsertManyResult)

	for _, doc := range docs {
		t.docs = append(t.docs, doc)
		res.InsertedIDs = append(res.InsertedIDs, int32(len(t.docs)))
	}

	return res, nil
}

// UpdateOne implements [operation.Target].
func (t *Target) UpdateOne(_ context.Context, filter, update any, upsert bool) (*mongo.UpdateResult, error) {
	if err := t.record("UpdateOne", filter, update, upsert); err != nil {
		return nil, err
	}

	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

// UpdateMany implements [operation.Target].
func (t *Target) UpdateMany(_ context.Context, filter, update any, upsert bool) (*mongo.UpdateResult, error) {
	if err := t.record("UpdateMany", filter, update, upsert); err != nil {
		return nil, err
	}

	return &mongo.UpdateResult{MatchedCount: 2, ModifiedCount: 2}, nil
}

// DeleteOne implements [operation.Target].
func (t *Target) DeleteOne(_ context.Context, filter any) (*mongo.DeleteResult, error) {
	if err := t.record("DeleteOne", filter); err != nil {
		return nil, err
	}

	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

// DeleteMany implements [operation.Target].
func (t *Target) DeleteMany(_ context.Context, filter any) (*mongo.DeleteResult, error) {
	if err := t.record("DeleteMany", filter); err != nil {
		return nil, err
	}

	return &mongo.DeleteResult{DeletedCount: 2}, nil
}

// FindOne implements [operation.Target].
//
// It returns the first stored document converted to [bson.M], or nil.
func (t *Target) FindOne(_ context.Context, filter, projection any) (bson.M, error) {
	if err := t.record("FindOne", filter, projection); err != nil {
		return nil, err
	}

	docs := t.Docs()
	if len(docs) == 0 {
		return nil, nil
	}

	return toM(docs[0])
}

// FindAll implements [operation.Target].
//
// It returns all stored documents converted to [bson.M].
func (t *Target) FindAll(_ context.Context, filter, projection any) ([]bson.M, error) {
	if err := t.record("FindAll", filter, projection); err != nil {
		return nil, err
	}

	res := []bson.M{}

	for _, doc := range t.Docs() {
		m, err := toM(doc)
		if err != nil {
			return nil, err
		}

		res = append(res, m)
	}

	return res, nil
}

// toM converts document to bson.M the same way the driver does.
func toM(doc any) (bson.M, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var m bson.M
	if err = bson.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	return m, nil
}

// check interfaces
var (
	_ operation.Target = (*Target)(nil)
)
