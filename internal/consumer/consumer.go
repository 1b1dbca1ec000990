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

// Package consumer provides consumers of the shared connection and their registry.
package consumer

import (
	"context"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/exp/maps"

	"github.com/FerretDB/mongohelper/internal/conn"
	"github.com/FerretDB/mongohelper/internal/util/lazyerrors"
)

// Consumer is a lightweight handle bound to one database of the shared connection.
//
// Consumer borrows the connection; closing it does not disconnect anything.
type Consumer struct {
	id       uint64
	db       string
	conn     *conn.Connection
	metadata map[string]any
	created  time.Time

	closed atomic.Bool
}

// ID returns consumer's identity, unique within the registry that created it.
func (c *Consumer) ID() uint64 {
	return c.id
}

// DatabaseName returns the name of the bound database.
func (c *Consumer) DatabaseName() string {
	return c.db
}

// Database returns the bound database.
func (c *Consumer) Database() *mongo.Database {
	return c.conn.Database(c.db)
}

// Connection returns the shared connection.
func (c *Consumer) Connection() *conn.Connection {
	return c.conn
}

// Metadata returns a copy of consumer's metadata.
func (c *Consumer) Metadata() map[string]any {
	return maps.Clone(c.metadata)
}

// Created returns consumer's creation time.
func (c *Consumer) Created() time.Time {
	return c.created
}

// Closed returns true if consumer was closed by the registry.
//
// Batches of a closed consumer are rejected.
// Its database and collection handles stay usable because they share the connection with other consumers.
func (c *Consumer) Closed() bool {
	return c.closed.Load()
}

// ListCollectionNames returns names of all collections in the bound database.
func (c *Consumer) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := c.Database().ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return names, nil
}

// CollectionExists returns true if the bound database contains the given collection.
func (c *Consumer) CollectionExists(ctx context.Context, name string) (bool, error) {
	opts := options.ListCollections().SetNameOnly(true)

	names, err := c.Database().ListCollectionNames(ctx, bson.D{{"name", name}}, opts)
	if err != nil {
		return false, lazyerrors.Error(err)
	}

	return len(names) > 0, nil
}
