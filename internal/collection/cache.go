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

package collection

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/FerretDB/mongohelper/internal/consumer"
	"github.com/FerretDB/mongohelper/internal/operation"
)

// Parts of Prometheus metric names.
const (
	namespace = "mongohelper"
	subsystem = "collections"
)

// Keying determines the cache key of a collection handle.
type Keying int

const (
	// KeyByName uses only the collection name.
	//
	// The handle cached for "users" of one database is returned for "users" of any other database.
	// Use it only when all consumers are bound to the same database.
	KeyByName Keying = iota

	// KeyByNamespace uses (database, collection) pair.
	KeyByNamespace
)

// String implements fmt.Stringer.
func (k Keying) String() string {
	switch k {
	case KeyByName:
		return "name"
	case KeyByNamespace:
		return "namespace"
	default:
		return fmt.Sprintf("Keying(%d)", int(k))
	}
}

// Cache stores collection handles.
//
// There is no eviction: handles live as long as the cache.
//
// All Cache's methods are thread-safe.
//
//nolint:vet // for readability
type Cache struct {
	m      sync.Mutex
	h      map[string]*Handle
	keying Keying

	l       *zap.Logger
	lookups *prometheus.CounterVec
}

// NewCacheOpts represents [NewCache] options.
type NewCacheOpts struct {
	Keying Keying
	Logger *zap.Logger
}

// NewCache creates a new Cache.
func NewCache(opts *NewCacheOpts) *Cache {
	if opts == nil {
		opts = new(NewCacheOpts)
	}

	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}

	return &Cache{
		h:      map[string]*Handle{},
		keying: opts.Keying,
		l:      l,
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lookups_total",
				Help:      "Total number of collection handle lookups.",
			},
			[]string{"result"},
		),
	}
}

// Keying returns cache keying.
func (c *Cache) Keying() Keying {
	return c.keying
}

// Get returns the cached handle for the collection of consumer's database, creating it if needed.
//
// Handles are not bound to consumer's lifetime, so a closed consumer only produces a warning.
func (c *Cache) Get(cons *consumer.Consumer, name string) *Handle {
	if cons.Closed() {
		c.l.Warn(
			"Collection handle requested for closed consumer",
			zap.Uint64("consumer", cons.ID()),
			zap.String("collection", name),
		)
	}

	return c.GetFor(cons.Database(), name)
}

// GetFor returns the cached handle for the collection of the given database, creating it if needed.
func (c *Cache) GetFor(db *mongo.Database, name string) *Handle {
	key := name
	if c.keying == KeyByNamespace {
		key = db.Name() + "." + name
	}

	c.m.Lock()
	defer c.m.Unlock()

	if h := c.h[key]; h != nil {
		c.lookups.WithLabelValues("hit").Inc()

		if h.DatabaseName() != db.Name() {
			c.l.Warn(
				"Returning handle of another database",
				zap.String("collection", name),
				zap.String("requested", db.Name()),
				zap.String("cached", h.DatabaseName()),
			)
		}

		return h
	}

	c.lookups.WithLabelValues("miss").Inc()

	h := newHandle(db.Collection(name))
	c.h[key] = h

	c.l.Debug("Cached", zap.String("key", key), zap.Int("total", len(c.h)))

	return h
}

// Target returns the cached handle as a commit target.
func (c *Cache) Target(cons *consumer.Consumer, name string) operation.Target {
	return c.Get(cons, name)
}

// Len returns the number of cached handles.
func (c *Cache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()

	return len(c.h)
}

// cachedDesc describes the current number of cached handles.
var cachedDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, subsystem, "cached"),
	"The current number of cached handles.",
	nil, nil,
)

// Describe implements prometheus.Collector.
func (c *Cache) Describe(ch chan<- *prometheus.Desc) {
	c.lookups.Describe(ch)
	ch <- cachedDesc
}

// Collect implements prometheus.Collector.
func (c *Cache) Collect(ch chan<- prometheus.Metric) {
	c.lookups.Collect(ch)

	ch <- prometheus.MustNewConstMetric(cachedDesc, prometheus.GaugeValue, float64(c.Len()))
}

// check interfaces
var (
	_ prometheus.Collector = (*Cache)(nil)
	_ fmt.Stringer         = KeyByName
)
