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

package operation

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FerretDB/mongohelper/internal/mongoerrors"
)

// Target is a collection operations are committed against.
//
// It is implemented by collection handles.
type Target interface {
	InsertOne(ctx context.Context, doc any) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, docs []any) (*mongo.InsertManyResult, error)
	UpdateOne(ctx context.Context, filter, update any, upsert bool) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update any, upsert bool) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter any) (*mongo.DeleteResult, error)
	FindOne(ctx context.Context, filter, projection any) (bson.M, error)
	FindAll(ctx context.Context, filter, projection any) ([]bson.M, error)
}

// Commit executes the operation against the target and returns the raw result.
//
// If ctx is a [mongo.SessionContext], the operation is a part of that session's transaction.
//
// The result type depends on the kind:
//   - [*mongo.InsertOneResult] for insert-one;
//   - [*mongo.InsertManyResult] for insert-many;
//   - [*mongo.UpdateResult] for update-one and update-many;
//   - [*mongo.DeleteResult] for delete-one and delete-many;
//   - [bson.M] or nil for find-one;
//   - []bson.M for find-many.
//
// Target's errors are returned as is.
// [mongoerrors.ErrUnsupportedOperation] is returned for nil operation.
func Commit(ctx context.Context, t Target, op Operation) (any, error) {
	switch op := op.(type) {
	case *InsertOneOp:
		return result(t.InsertOne(ctx, op.Document))
	case *InsertManyOp:
		return result(t.InsertMany(ctx, op.Documents))
	case *UpdateOneOp:
		return result(t.UpdateOne(ctx, op.Filter, op.Update, op.Upsert))
	case *UpdateManyOp:
		return result(t.UpdateMany(ctx, op.Filter, op.Update, op.Upsert))
	case *DeleteOneOp:
		return result(t.DeleteOne(ctx, op.Filter))
	case *DeleteManyOp:
		return result(t.DeleteMany(ctx, op.Filter))
	case *FindOneOp:
		doc, err := t.FindOne(ctx, op.Filter, op.Projection)
		if err != nil || doc == nil {
			return nil, err
		}

		return doc, nil
	case *FindManyOp:
		return result(t.FindAll(ctx, op.Filter, op.Projection))
	default:
		return nil, mongoerrors.New(mongoerrors.ErrUnsupportedOperation, fmt.Sprintf("unsupported operation %T", op))
	}
}

// result returns untyped nil on error.
func result[T any](res T, err error) (any, error) {
	if err != nil {
		return nil, err
	}

	return res, nil
}
