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
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/FerretDB/mongohelper/internal/conn"
	"github.com/FerretDB/mongohelper/internal/consumer"
	utiltestutil "github.com/FerretDB/mongohelper/internal/util/testutil"
)

// registry returns consumer registry of the unused connection.
func registry(t *testing.T) *consumer.Registry {
	t.Helper()

	f := conn.NewFactory(&conn.NewFactoryOpts{
		URI:    "mongodb://127.0.0.1:1/",
		Dial:   conn.DialNoPing,
		Logger: utiltestutil.Logger(t),
	})

	t.Cleanup(func() {
		require.NoError(t, f.Close(context.Background()))
	})

	return consumer.NewRegistry(&consumer.NewRegistryOpts{
		Factory: f,
		Logger:  utiltestutil.Logger(t),
	})
}

// consumers returns two consumers bound to different databases of the same unused connection.
func consumers(t *testing.T) (*consumer.Consumer, *consumer.Consumer) {
	t.Helper()

	ctx := utiltestutil.Ctx(t)
	r := registry(t)

	a, err := r.Create(ctx, &consumer.CreateParams{Database: "a"})
	require.NoError(t, err)

	b, err := r.Create(ctx, &consumer.CreateParams{Database: "b"})
	require.NoError(t, err)

	return a, b
}

func TestCacheKeyByName(t *testing.T) {
	a, b := consumers(t)

	c := NewCache(&NewCacheOpts{Logger: utiltestutil.Logger(t)})
	assert.Equal(t, KeyByName, c.Keying())

	h1 := c.Get(a, "orders")
	h2 := c.Get(a, "orders")
	assert.Same(t, h1, h2)

	// the handle of database "a" is returned for database "b"
	h3 := c.Get(b, "orders")
	assert.Same(t, h1, h3)
	assert.Equal(t, "a", h3.DatabaseName())
	assert.Equal(t, "a.orders", h3.Namespace())

	h4 := c.Get(b, "users")
	assert.NotSame(t, h1, h4)
	assert.Equal(t, "b", h4.DatabaseName())
	assert.Equal(t, "users", h4.Name())

	assert.Equal(t, 2, c.Len())
}

func TestCacheClosedConsumer(t *testing.T) {
	r := registry(t)

	cons, err := r.Create(utiltestutil.Ctx(t), &consumer.CreateParams{Database: "a"})
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	c := NewCache(&NewCacheOpts{Logger: zap.New(core)})

	h := c.Get(cons, "orders")
	assert.Zero(t, logs.Len())

	require.True(t, r.Close(cons))

	assert.Same(t, h, c.Get(cons, "orders"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Collection handle requested for closed consumer", logs.All()[0].Message)
}

func TestCacheKeyByNamespace(t *testing.T) {
	a, b := consumers(t)

	c := NewCache(&NewCacheOpts{Keying: KeyByNamespace, Logger: utiltestutil.Logger(t)})

	h1 := c.Get(a, "orders")
	assert.Same(t, h1, c.Get(a, "orders"))

	h2 := c.Get(b, "orders")
	assert.NotSame(t, h1, h2)
	assert.Equal(t, "a.orders", h1.Namespace())
	assert.Equal(t, "b.orders", h2.Namespace())

	assert.Equal(t, 2, c.Len())
}

func TestCacheConcurrent(t *testing.T) {
	a, _ := consumers(t)

	c := NewCache(nil)

	const n = 50

	handles := make([]*Handle, n)

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			handles[i] = c.Get(a, "orders")
			return nil
		})
	}

	require.NoError(t, g.Wait())

	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}

	assert.Equal(t, 1, c.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(c.lookups.WithLabelValues("miss")), 0)
	assert.InDelta(t, n-1, testutil.ToFloat64(c.lookups.WithLabelValues("hit")), 0)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	_, err := reg.Gather()
	require.NoError(t, err)
}

func TestKeyingString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "name", KeyByName.String())
	assert.Equal(t, "namespace", KeyByNamespace.String())
	assert.Equal(t, "Keying(42)", Keying(42).String())
}
