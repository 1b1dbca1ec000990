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

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FerretDB/mongohelper/internal/operation"
	"github.com/FerretDB/mongohelper/internal/util/must"
	"github.com/FerretDB/mongohelper/mongohelper"
)

func TestParseBatch(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"database": "shop",
		"operations": [
			{"kind": "insert-one", "collection": "orders", "document": {"_id": {"$oid": "65f8a0e1c2b3d4e5f6a7b8c9"}, "qty": 2}},
			{"kind": "insert-many", "collection": "orders", "documents": [{"qty": 1}, {"qty": 3}]},
			{"kind": "update-one", "collection": "stock", "filter": {"item": "book"}, "update": {"$inc": {"qty": -1}}, "upsert": true},
			{"kind": "find-many", "collection": "orders", "projection": {"qty": 1}}
		]
	}`)

	db, ops, err := parseBatch(data)
	require.NoError(t, err)
	assert.Equal(t, "shop", db)
	require.Len(t, ops, 4)

	oid := must.NotFail(primitive.ObjectIDFromHex("65f8a0e1c2b3d4e5f6a7b8c9"))

	insert := ops[0].(*operation.InsertOneOp)
	assert.Equal(t, "orders", insert.Collection())
	assert.Equal(t, bson.D{{"_id", oid}, {"qty", int32(2)}}, insert.Document)

	insertMany := ops[1].(*operation.InsertManyOp)
	assert.Equal(t, []any{bson.D{{"qty", int32(1)}}, bson.D{{"qty", int32(3)}}}, insertMany.Documents)

	update := ops[2].(*operation.UpdateOneOp)
	assert.Equal(t, "stock", update.Collection())
	assert.Equal(t, bson.D{{"item", "book"}}, update.Filter)
	assert.Equal(t, bson.D{{"$inc", bson.D{{"qty", int32(-1)}}}}, update.Update)
	assert.True(t, update.Upsert)

	find := ops[3].(*operation.FindManyOp)
	assert.Equal(t, bson.D{}, find.Filter)
	assert.Equal(t, bson.D{{"qty", int32(1)}}, find.Projection)
}

func TestParseBatchErrors(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		data string
		err  string
	}{
		"InvalidJSON": {
			data: `{"operations": [`,
		},
		"UnknownKind": {
			data: `{"operations": [{"kind": "replace-one", "collection": "c"}]}`,
			err:  `operation #0: UnsupportedOperation (3): unknown operation kind "replace-one"`,
		},
		"NoCollection": {
			data: `{"operations": [{"kind": "delete-many"}]}`,
			err:  "operation #0: collection is not set",
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, _, err := parseBatch([]byte(tc.data))
			require.Error(t, err)

			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
			}
		})
	}
}

func TestWriteResults(t *testing.T) {
	t.Parallel()

	res := []mongohelper.Result{
		{ID: "1", Kind: mongohelper.KindDeleteMany, Collection: "c", Raw: &mongo.DeleteResult{DeletedCount: 2}},
		{ID: "2", Kind: mongohelper.KindFindOne, Collection: "c", Raw: nil},
		{ID: "3", Kind: mongohelper.KindFindMany, Collection: "c", Raw: []bson.M{{"v": int32(1)}}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, res))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], `"kind":"delete-many"`)
	assert.Contains(t, lines[1], `"result":null`)
	assert.Contains(t, lines[2], `"result":[{"v":1}]`)
}
