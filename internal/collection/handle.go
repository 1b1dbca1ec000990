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

// Package collection provides collection handles and their cache.
package collection

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FerretDB/mongohelper/internal/operation"
	"github.com/FerretDB/mongohelper/internal/util/lazyerrors"
)

// Handle exposes mutation and query primitives of one collection.
//
// All methods accept a context; if it is a [mongo.SessionContext] with the started transaction,
// the call is a part of that transaction. Otherwise, the call is committed immediately.
// Driver errors are returned as is.
//
// Handle is safe for concurrent use.
type Handle struct {
	c *mongo.Collection
}

// newHandle creates a new Handle for the given collection.
func newHandle(c *mongo.Collection) *Handle {
	return &Handle{c: c}
}

// Name returns collection name.
func (h *Handle) Name() string {
	return h.c.Name()
}

// DatabaseName returns database name.
func (h *Handle) DatabaseName() string {
	return h.c.Database().Name()
}

// Namespace returns "database.collection".
func (h *Handle) Namespace() string {
	return h.DatabaseName() + "." + h.Name()
}

// Collection returns the underlying driver collection.
func (h *Handle) Collection() *mongo.Collection {
	return h.c
}

// InsertOne inserts a single document.
func (h *Handle) InsertOne(ctx context.Context, doc any) (*mongo.InsertOneResult, error) {
	return h.c.InsertOne(ctx, doc)
}

// InsertMany inserts documents in order.
func (h *Handle) InsertMany(ctx context.Context, docs []any) (*mongo.InsertManyResult, error) {
	return h.c.InsertMany(ctx, docs)
}

// UpdateOne updates the first document matching filter.
func (h *Handle) UpdateOne(ctx context.Context, filter, update any, upsert bool) (*mongo.UpdateResult, error) {
	return h.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(upsert))
}

// UpdateMany updates all documents matching filter.
func (h *Handle) UpdateMany(ctx context.Context, filter, update any, upsert bool) (*mongo.UpdateResult, error) {
	return h.c.UpdateMany(ctx, filter, update, options.Update().SetUpsert(upsert))
}

// DeleteOne deletes the first document matching filter.
func (h *Handle) DeleteOne(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return h.c.DeleteOne(ctx, filter)
}

// DeleteMany deletes all documents matching filter.
func (h *Handle) DeleteMany(ctx context.Context, filter any) (*mongo.DeleteResult, error) {
	return h.c.DeleteMany(ctx, filter)
}

// FindOne returns the first document matching filter, or nil if there is none.
//
// Projection may be nil.
func (h *Handle) FindOne(ctx context.Context, filter, projection any) (bson.M, error) {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	var doc bson.M
	if err := h.c.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		return nil, err
	}

	return doc, nil
}

// Find returns a lazy cursor over documents matching filter.
//
// The caller is responsible for closing it.
func (h *Handle) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return h.c.Find(ctx, filter, opts...)
}

// FindAll returns all documents matching filter.
//
// Projection may be nil.
func (h *Handle) FindAll(ctx context.Context, filter, projection any) ([]bson.M, error) {
	return h.FindWithProjection(ctx, filter, projection, 0)
}

// FindWithProjection returns at most limit documents matching filter, with projection applied.
//
// Zero limit means no limit.
func (h *Handle) FindWithProjection(ctx context.Context, filter, projection any, limit int64) ([]bson.M, error) {
	opts := options.Find()
	if projection != nil {
		opts.SetProjection(projection)
	}

	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := h.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	res := []bson.M{}
	if err = cursor.All(ctx, &res); err != nil {
		return nil, err
	}

	return res, nil
}

// CountDocuments returns the number of documents matching filter.
func (h *Handle) CountDocuments(ctx context.Context, filter any) (int64, error) {
	return h.c.CountDocuments(ctx, filter)
}

// CreateIndex creates an index with the given keys and returns its name.
func (h *Handle) CreateIndex(ctx context.Context, keys any, unique bool) (string, error) {
	model := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(unique),
	}

	return h.c.Indexes().CreateOne(ctx, model)
}

// CreateIndexes creates several indexes at once and returns their names.
func (h *Handle) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	return h.c.Indexes().CreateMany(ctx, models)
}

// Duplicate represents a group of documents sharing the same field value.
type Duplicate struct {
	Value any   `bson:"_id"`
	IDs   []any `bson:"ids"`
	Count int64 `bson:"count"`
}

// FindDuplicates returns groups of documents with the same value of the given field.
//
// IDs of each group are sorted in ascending order.
func (h *Handle) FindDuplicates(ctx context.Context, field string) ([]Duplicate, error) {
	pipeline := mongo.Pipeline{
		{{"$sort", bson.D{{"_id", 1}}}},
		{{"$group", bson.D{
			{"_id", "$" + field},
			{"ids", bson.D{{"$push", "$_id"}}},
			{"count", bson.D{{"$sum", 1}}},
		}}},
		{{"$match", bson.D{{"count", bson.D{{"$gt", 1}}}}}},
	}

	cursor, err := h.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var res []Duplicate
	if err = cursor.All(ctx, &res); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// RemoveDuplicates keeps the document with the smallest _id of each duplicate group,
// removes the rest, and returns the number of removed documents.
func (h *Handle) RemoveDuplicates(ctx context.Context, field string) (int64, error) {
	dups, err := h.FindDuplicates(ctx, field)
	if err != nil {
		return 0, err
	}

	var removed int64

	for _, d := range dups {
		res, err := h.c.DeleteMany(ctx, bson.D{{"_id", bson.D{{"$in", d.IDs[1:]}}}})
		if err != nil {
			return removed, err
		}

		removed += res.DeletedCount
	}

	return removed, nil
}

// check interfaces
var (
	_ operation.Target = (*Handle)(nil)
)
