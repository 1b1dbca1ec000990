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

package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/FerretDB/mongohelper/internal/config"
	"github.com/FerretDB/mongohelper/internal/conn"
)

// Parts of Prometheus metric names.
const (
	namespace = "mongohelper"
	subsystem = "consumers"
)

// Registry issues and tracks consumers of the shared connection.
//
// All Registry's methods are thread-safe.
//
//nolint:vet // for readability
type Registry struct {
	rw     sync.RWMutex
	m      map[uint64]*Consumer
	lastID uint64

	f  *conn.Factory
	db string
	l  *zap.Logger

	created prometheus.Counter
	closed  prometheus.Counter
}

// NewRegistryOpts represents [NewRegistry] options.
type NewRegistryOpts struct {
	Factory *conn.Factory

	// Default database name. If empty, it is resolved from the environment and the connection URI.
	Database string

	Logger *zap.Logger
}

// NewRegistry creates a new Registry.
func NewRegistry(opts *NewRegistryOpts) *Registry {
	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}

	return &Registry{
		m:  map[uint64]*Consumer{},
		f:  opts.Factory,
		db: opts.Database,
		l:  l,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "created_total",
			Help:      "Total number of created consumers.",
		}),
		closed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "closed_total",
			Help:      "Total number of closed consumers.",
		}),
	}
}

// CreateParams represents parameters for [Registry.Create].
type CreateParams struct {
	// Database name. If empty, registry's default is used.
	Database string

	// Free-form metadata; copied.
	Metadata map[string]any
}

// Create creates and registers a new consumer.
//
// It establishes the shared connection if needed;
// connection errors are returned as is.
func (r *Registry) Create(ctx context.Context, params *CreateParams) (*Consumer, error) {
	if params == nil {
		params = new(CreateParams)
	}

	c, err := r.f.Get(ctx, "")
	if err != nil {
		return nil, err
	}

	db := params.Database
	if db == "" {
		db = r.db
	}

	if db, err = config.ResolveDatabase(db, c.URI()); err != nil {
		return nil, err
	}

	metadata := maps.Clone(params.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}

	r.rw.Lock()
	defer r.rw.Unlock()

	r.lastID++

	consumer := &Consumer{
		id:       r.lastID,
		db:       db,
		conn:     c,
		metadata: metadata,
		created:  time.Now(),
	}
	r.m[consumer.id] = consumer

	r.created.Inc()

	r.l.Debug("Created", zap.Uint64("id", consumer.id), zap.String("db", db), zap.Int("total", len(r.m)))

	return consumer, nil
}

// Close removes consumer from the registry.
//
// It returns false and logs a warning if consumer is not registered (for example, already closed).
// The shared connection stays open.
func (r *Registry) Close(c *Consumer) bool {
	if c == nil {
		r.l.Warn("Nil consumer is not found")
		return false
	}

	r.rw.Lock()
	defer r.rw.Unlock()

	if r.m[c.id] != c {
		r.l.Warn("Consumer is not found", zap.Uint64("id", c.id))
		return false
	}

	delete(r.m, c.id)
	c.closed.Store(true)

	r.closed.Inc()

	r.l.Debug("Closed", zap.Uint64("id", c.id), zap.Int("total", len(r.m)))

	return true
}

// CloseAll removes all consumers from the registry and returns their number.
func (r *Registry) CloseAll() int {
	r.rw.Lock()
	defer r.rw.Unlock()

	n := len(r.m)

	for id, c := range r.m {
		c.closed.Store(true)
		delete(r.m, id)
	}

	r.closed.Add(float64(n))

	r.l.Debug("Closed all", zap.Int("closed", n))

	return n
}

// Count returns the number of live consumers.
func (r *Registry) Count() int {
	r.rw.RLock()
	defer r.rw.RUnlock()

	return len(r.m)
}

// All returns all live consumers ordered by ID.
func (r *Registry) All() []*Consumer {
	r.rw.RLock()
	res := maps.Values(r.m)
	r.rw.RUnlock()

	slices.SortFunc(res, func(a, b *Consumer) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})

	return res
}

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(r, ch)
}

// Collect implements prometheus.Collector.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	r.created.Collect(ch)
	r.closed.Collect(ch)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, "current"), "The current number of consumers.", nil, nil),
		prometheus.GaugeValue,
		float64(r.Count()),
	)
}

// check interfaces
var (
	_ prometheus.Collector = (*Registry)(nil)
)
