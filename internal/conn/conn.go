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

// Package conn provides the shared MongoDB connection and its factory.
package conn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"github.com/FerretDB/mongohelper/internal/util/lazyerrors"
)

// DialFunc establishes a new client for the given URI.
type DialFunc func(ctx context.Context, uri string) (*mongo.Client, error)

// Dial is the default [DialFunc].
//
// It connects with OpenTelemetry command monitor installed and pings the primary
// to surface unreachable hosts and authentication failures immediately.
func Dial(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := DialNoPing(ctx, uri)
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, lazyerrors.Error(err)
	}

	return client, nil
}

// DialNoPing is a [DialFunc] that does not verify the connection.
//
// The driver connects in the background; problems are reported by the first operation.
func DialNoPing(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri)
	opts.SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return client, nil
}

// Connection is a shared handle to the MongoDB deployment.
//
// It is safe for concurrent use.
type Connection struct {
	client  *mongo.Client
	uri     string
	created time.Time
}

// Client returns the underlying driver client.
func (c *Connection) Client() *mongo.Client {
	return c.client
}

// Database returns a handle for the given database.
func (c *Connection) Database(name string) *mongo.Database {
	return c.client.Database(name)
}

// Ping verifies that the primary is reachable.
func (c *Connection) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// URI returns connection URI.
//
// It may contain credentials; use [Redact] for logging.
func (c *Connection) URI() string {
	return c.uri
}

// Created returns the time when the connection was established.
func (c *Connection) Created() time.Time {
	return c.created
}

// Redact returns URI without credentials and options, suitable for logging.
func Redact(uri string) string {
	cs, err := connstring.Parse(uri)
	if err != nil {
		return "<invalid URI>"
	}

	scheme := "mongodb"
	if cs.Scheme != "" {
		scheme = cs.Scheme
	}

	return fmt.Sprintf("%s://%s/%s", scheme, strings.Join(cs.Hosts, ","), cs.Database)
}
