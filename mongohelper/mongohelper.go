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

// Package mongohelper provides shared MongoDB connection lifecycle management
// and batch execution of operations, atomic on replica sets.
//
// A typical use:
//
//	h, err := mongohelper.New(&mongohelper.Config{URI: uri})
//	...
//	defer h.Close(ctx)
//
//	c, err := h.CreateConsumer(ctx, "shop")
//	...
//	defer h.CloseConsumer(c)
//
//	res, err := h.ExecuteBatch(ctx, c, []mongohelper.Operation{
//		mongohelper.InsertOne("orders", bson.D{{"item", "book"}}),
//		mongohelper.UpdateOne("stock", query.Eq("item", "book"), query.Inc("qty", -1), false),
//	})
//
// Filter, update and projection documents can be built with the [query] package.
package mongohelper

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/FerretDB/mongohelper/internal/collection"
	"github.com/FerretDB/mongohelper/internal/config"
	"github.com/FerretDB/mongohelper/internal/conn"
	"github.com/FerretDB/mongohelper/internal/consumer"
	"github.com/FerretDB/mongohelper/internal/mongoerrors"
	"github.com/FerretDB/mongohelper/internal/txn"
	"github.com/FerretDB/mongohelper/mongohelper/query"
)

// Config represents Helper configuration.
//
// Empty values are resolved from the environment when needed;
// see [URIEnvVars], [DatabaseEnvVar] and [ReplicaSetEnvVar].
type Config struct {
	// Connection URI.
	URI string

	// Default database name for consumers.
	Database string

	// If nil, the replica set flag is read from the environment on each batch.
	ReplicaSet *bool

	// Collection handles cache keying. By default, only collection names are used.
	CacheKeying Keying

	// Do not ping the deployment after connecting.
	NoPing bool

	// If nil, the global zap logger is used.
	Logger *zap.Logger
}

// Helper manages one shared connection, its consumers, and collection handles.
//
// Helper is safe for concurrent use.
type Helper struct {
	config *Config
	l      *zap.Logger

	f     *conn.Factory
	r     *consumer.Registry
	cache *collection.Cache
	e     *txn.Executor
}

// New creates a new Helper.
//
// It does not connect; the connection is established by [Helper.Connect] or on the first use.
func New(c *Config) (*Helper, error) {
	if c == nil {
		c = new(Config)
	}

	switch c.CacheKeying {
	case collection.KeyByName, collection.KeyByNamespace:
	default:
		return nil, mongoerrors.New(mongoerrors.ErrConfiguration, "unexpected cache keying "+c.CacheKeying.String())
	}

	l := c.Logger
	if l == nil {
		l = zap.L()
	}

	l = l.Named("mongohelper")

	dial := conn.Dial
	if c.NoPing {
		dial = conn.DialNoPing
	}

	f := conn.NewFactory(&conn.NewFactoryOpts{
		URI:    c.URI,
		Dial:   dial,
		Logger: l.Named("conn"),
	})

	cache := collection.NewCache(&collection.NewCacheOpts{
		Keying: c.CacheKeying,
		Logger: l.Named("collection"),
	})

	h := &Helper{
		config: c,
		l:      l,
		f:      f,
		r: consumer.NewRegistry(&consumer.NewRegistryOpts{
			Factory:  f,
			Database: c.Database,
			Logger:   l.Named("consumer"),
		}),
		cache: cache,
	}

	h.e = txn.NewExecutor(&txn.NewExecutorOpts{
		Resolver: cache,
		Mode:     h.mode,
		Logger:   l.Named("txn"),
	})

	return h, nil
}

// mode returns batch execution mode.
func (h *Helper) mode() (txn.Mode, error) {
	rs, err := config.ResolveReplicaSet(h.config.ReplicaSet)
	if err != nil {
		return txn.Standalone, err
	}

	if rs {
		return txn.ReplicaSet, nil
	}

	return txn.Standalone, nil
}

// Connect establishes the shared connection.
//
// URI is resolved from uri argument, [Config] and the environment, in that order.
// If the connection already exists, Connect logs a warning, does nothing, and returns false.
func (h *Helper) Connect(ctx context.Context, uri string) (bool, error) {
	return h.f.Connect(ctx, uri)
}

// Connection returns the shared connection, establishing it if needed.
func (h *Helper) Connection(ctx context.Context) (*Connection, error) {
	return h.f.Get(ctx, "")
}

// CreateConsumer creates a new consumer bound to the given database.
//
// If db is empty, [Config] Database, the environment, and the connection URI are checked, in that order.
func (h *Helper) CreateConsumer(ctx context.Context, db string) (*Consumer, error) {
	return h.r.Create(ctx, &consumer.CreateParams{Database: db})
}

// CreateConsumerWithMetadata is like [Helper.CreateConsumer], but attaches free-form metadata to the consumer.
func (h *Helper) CreateConsumerWithMetadata(ctx context.Context, db string, metadata map[string]any) (*Consumer, error) {
	return h.r.Create(ctx, &consumer.CreateParams{Database: db, Metadata: metadata})
}

// CloseConsumer releases the consumer. The shared connection stays open.
//
// It returns false if the consumer was already closed.
func (h *Helper) CloseConsumer(c *Consumer) bool {
	return h.r.Close(c)
}

// CloseAllConsumers releases all consumers and returns their number.
func (h *Helper) CloseAllConsumers() int {
	return h.r.CloseAll()
}

// ConsumerCount returns the number of live consumers.
func (h *Helper) ConsumerCount() int {
	return h.r.Count()
}

// Consumers returns all live consumers.
func (h *Helper) Consumers() []*Consumer {
	return h.r.All()
}

// Collection returns the cached handle of the collection in consumer's database.
//
// With the default [KeyByName] keying, the handle is shared by all databases;
// see [Keying].
func (h *Helper) Collection(c *Consumer, name string) *Handle {
	return h.cache.Get(c, name)
}

// WithCollection creates a temporary consumer of db, calls fn with the handle of the collection,
// and closes the consumer.
func (h *Helper) WithCollection(ctx context.Context, db, coll string, fn func(context.Context, *Handle) error) error {
	c, err := h.CreateConsumer(ctx, db)
	if err != nil {
		return err
	}

	defer h.CloseConsumer(c)

	return fn(ctx, h.Collection(c, coll))
}

// ExecuteBatch commits operations in order and returns one result per operation, in the same order.
//
// When the replica set flag is set, all operations are committed in a single transaction:
// on failure, it is aborted and no changes are visible.
//
// Otherwise, operations are committed independently and the batch is NOT atomic:
// on failure, operations before the failed one stay committed, and operations after it are not attempted.
//
// On failure, the returned error is [*OperationError] wrapping the original driver error.
// Batches of a closed consumer fail with [ErrConsumerClosed].
func (h *Helper) ExecuteBatch(ctx context.Context, c *Consumer, ops []Operation) ([]Result, error) {
	return h.e.ExecuteBatch(ctx, c, ops)
}

// Close releases all consumers and disconnects the shared connection.
//
// After that, Connect, Connection, and CreateConsumer return errors.
func (h *Helper) Close(ctx context.Context) error {
	if n := h.r.CloseAll(); n > 0 {
		h.l.Debug("Closed consumers", zap.Int("consumers", n))
	}

	return h.f.Close(ctx)
}

// Describe implements prometheus.Collector.
func (h *Helper) Describe(ch chan<- *prometheus.Desc) {
	h.r.Describe(ch)
	h.cache.Describe(ch)
	h.e.Describe(ch)
}

// Collect implements prometheus.Collector.
func (h *Helper) Collect(ch chan<- prometheus.Metric) {
	h.r.Collect(ch)
	h.cache.Collect(ch)
	h.e.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*Helper)(nil)
)

// ErrMixedProjection is returned by [query.SelectFields] when both included and excluded fields are given.
var ErrMixedProjection = query.ErrMixedProjection
