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

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FerretDB/mongohelper/integration/setup"
	"github.com/FerretDB/mongohelper/mongohelper/query"
	"github.com/FerretDB/mongohelper/mongohelper"
)

func TestConnectionPing(t *testing.T) {
	t.Parallel()

	ctx, h, _ := setup.Setup(t)

	conn, err := h.Connection(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Ping(ctx))

	created, err := h.Connect(ctx, "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestHandleCRUD(t *testing.T) {
	t.Parallel()

	ctx, h, c := setup.Setup(t)

	coll := h.Collection(c, "items")

	_, err := coll.InsertMany(ctx, []any{
		bson.D{{"_id", 1}, {"name", "apple"}, {"qty", 5}},
		bson.D{{"_id", 2}, {"name", "banana"}, {"qty", 0}},
		bson.D{{"_id", 3}, {"name", "avocado"}, {"qty", 7}},
	})
	require.NoError(t, err)

	n, err := coll.CountDocuments(ctx, query.Gt("qty", 0))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	upd, err := coll.UpdateOne(ctx, query.Eq("name", "cherry"), query.Set(bson.D{{"qty", 1}}), true)
	require.NoError(t, err)
	assert.NotNil(t, upd.UpsertedID)

	upd, err = coll.UpdateMany(ctx, query.Lt("qty", 2), query.Inc("qty", 10), false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, upd.ModifiedCount)

	filter, projection := query.SelectWithRegex("name", "^a")
	docs, err := coll.FindWithProjection(ctx, filter, projection, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []bson.M{{"name": "apple"}, {"name": "avocado"}}, docs)

	docs, err = coll.FindWithProjection(ctx, bson.D{}, nil, 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{"qty", -1}}))
	require.NoError(t, err)

	var sorted []bson.M
	require.NoError(t, cursor.All(ctx, &sorted))
	require.Len(t, sorted, 4)
	assert.Equal(t, "cherry", sorted[0]["name"])

	del, err := coll.DeleteOne(ctx, query.Eq("_id", 1))
	require.NoError(t, err)
	assert.EqualValues(t, 1, del.DeletedCount)

	del, err = coll.DeleteMany(ctx, bson.D{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, del.DeletedCount)

	doc, err := coll.FindOne(ctx, bson.D{}, nil)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestHandleIndexes(t *testing.T) {
	t.Parallel()

	ctx, h, c := setup.Setup(t)

	coll := h.Collection(c, "users")

	name, err := coll.CreateIndex(ctx, bson.D{{"email", 1}}, true)
	require.NoError(t, err)
	assert.Equal(t, "email_1", name)

	names, err := coll.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{"age", 1}}},
		{Keys: bson.D{{"city", 1}, {"age", -1}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"age_1", "city_1_age_-1"}, names)

	_, err = coll.InsertOne(ctx, bson.D{{"email", "a@example.com"}})
	require.NoError(t, err)

	_, err = coll.InsertOne(ctx, bson.D{{"email", "a@example.com"}})
	assert.True(t, mongo.IsDuplicateKeyError(err), "%v", err)
}

func TestHandleDuplicates(t *testing.T) {
	t.Parallel()

	ctx, h, c := setup.Setup(t)

	coll := h.Collection(c, "events")

	_, err := coll.InsertMany(ctx, []any{
		bson.D{{"_id", 1}, {"key", "a"}},
		bson.D{{"_id", 2}, {"key", "b"}},
		bson.D{{"_id", 3}, {"key", "a"}},
		bson.D{{"_id", 4}, {"key", "a"}},
		bson.D{{"_id", 5}, {"key", "c"}},
		bson.D{{"_id", 6}, {"key", "c"}},
	})
	require.NoError(t, err)

	dups, err := coll.FindDuplicates(ctx, "key")
	require.NoError(t, err)
	require.Len(t, dups, 2)

	byValue := map[any]mongohelper.Duplicate{}
	for _, d := range dups {
		byValue[d.Value] = d
	}

	assert.EqualValues(t, 3, byValue["a"].Count)
	assert.Equal(t, []any{int32(1), int32(3), int32(4)}, byValue["a"].IDs)
	assert.EqualValues(t, 2, byValue["c"].Count)

	removed, err := coll.RemoveDuplicates(ctx, "key")
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	docs, err := coll.FindAll(ctx, bson.D{}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []bson.M{
		{"_id": int32(1), "key": "a"},
		{"_id": int32(2), "key": "b"},
		{"_id": int32(5), "key": "c"},
	}, docs)
}

func TestConsumerCollections(t *testing.T) {
	t.Parallel()

	ctx, h, c := setup.Setup(t)

	exists, err := c.CollectionExists(ctx, "things")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Database().CreateCollection(ctx, "things"))

	exists, err = c.CollectionExists(ctx, "things")
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := c.ListCollectionNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"things"}, names)

	err = h.WithCollection(ctx, c.DatabaseName(), "things", func(ctx context.Context, coll *mongohelper.Handle) error {
		_, err := coll.InsertOne(ctx, bson.D{{"v", 1}})
		return err
	})
	require.NoError(t, err)

	n, err := h.Collection(c, "things").CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, h.ConsumerCount())
}

func TestCacheAcrossDatabases(t *testing.T) {
	t.Parallel()

	s := setup.SetupWithOpts(t, &setup.SetupOpts{CacheKeying: mongohelper.KeyByNamespace})
	ctx, h, c := s.Ctx, s.Helper, s.Consumer

	other, err := h.CreateConsumer(ctx, c.DatabaseName()+"_other")
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, other.Database().Drop(context.Background()))
	})

	_, err = h.Collection(c, "users").InsertOne(ctx, bson.D{{"v", 1}})
	require.NoError(t, err)

	n, err := h.Collection(other, "users").CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.Zero(t, n)
}
