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
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/FerretDB/mongohelper/internal/config"
	"github.com/FerretDB/mongohelper/internal/conn"
	"github.com/FerretDB/mongohelper/internal/mongoerrors"
	"github.com/FerretDB/mongohelper/internal/util/testutil"
)

// setup returns a registry backed by the connection that is never used for operations.
func setup(t *testing.T, uri, db string) *Registry {
	t.Helper()

	t.Setenv(config.DatabaseEnvVar, "")

	f := conn.NewFactory(&conn.NewFactoryOpts{
		URI:    uri,
		Dial:   conn.DialNoPing,
		Logger: testutil.Logger(t),
	})

	t.Cleanup(func() {
		require.NoError(t, f.Close(context.Background()))
	})

	return NewRegistry(&NewRegistryOpts{
		Factory:  f,
		Database: db,
		Logger:   testutil.Logger(t),
	})
}

func TestRegistryCount(t *testing.T) {
	ctx := testutil.Ctx(t)
	r := setup(t, "mongodb://127.0.0.1:1/", "test")

	rnd := rand.New(rand.NewSource(42))

	var live []*Consumer
	var created, closed int

	for range 200 {
		if len(live) == 0 || rnd.Intn(3) > 0 {
			c, err := r.Create(ctx, nil)
			require.NoError(t, err)

			live = append(live, c)
			created++
		} else {
			i := rnd.Intn(len(live))
			c := live[i]
			live = append(live[:i], live[i+1:]...)

			require.True(t, r.Close(c))
			assert.True(t, c.Closed())
			closed++

			// idempotent
			assert.False(t, r.Close(c))
		}

		require.Equal(t, created-closed, r.Count())
	}

	assert.Len(t, r.All(), len(live))
	assert.Equal(t, len(live), r.CloseAll())
	assert.Zero(t, r.Count())

	for _, c := range live {
		assert.True(t, c.Closed())
		assert.False(t, r.Close(c))
	}

	assert.False(t, r.Close(nil))
}

func TestRegistryCreate(t *testing.T) {
	ctx := testutil.Ctx(t)

	t.Run("Default", func(t *testing.T) {
		r := setup(t, "mongodb://127.0.0.1:1/", "test")

		c1, err := r.Create(ctx, nil)
		require.NoError(t, err)

		c2, err := r.Create(ctx, &CreateParams{
			Database: "other",
			Metadata: map[string]any{"owner": "test"},
		})
		require.NoError(t, err)

		assert.NotEqual(t, c1.ID(), c2.ID())
		assert.Same(t, c1.Connection(), c2.Connection())

		assert.Equal(t, "test", c1.DatabaseName())
		assert.Equal(t, "test", c1.Database().Name())
		assert.Equal(t, "other", c2.DatabaseName())

		assert.Empty(t, c1.Metadata())
		md := c2.Metadata()
		assert.Equal(t, map[string]any{"owner": "test"}, md)

		md["owner"] = "changed"
		assert.Equal(t, "test", c2.Metadata()["owner"])

		assert.Equal(t, []*Consumer{c1, c2}, r.All())
	})

	t.Run("DatabaseFromURI", func(t *testing.T) {
		r := setup(t, "mongodb://127.0.0.1:1/fromuri", "")

		c, err := r.Create(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "fromuri", c.DatabaseName())
	})

	t.Run("DatabaseFromEnv", func(t *testing.T) {
		r := setup(t, "mongodb://127.0.0.1:1/fromuri", "")
		t.Setenv(config.DatabaseEnvVar, "fromenv")

		c, err := r.Create(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "fromenv", c.DatabaseName())
	})

	t.Run("NoDatabase", func(t *testing.T) {
		r := setup(t, "mongodb://127.0.0.1:1/", "")

		_, err := r.Create(ctx, nil)
		assert.True(t, mongoerrors.Is(err, mongoerrors.ErrConfiguration), "%v", err)
		assert.Zero(t, r.Count())
	})
}

func TestRegistryConcurrent(t *testing.T) {
	ctx := testutil.Ctx(t)
	r := setup(t, "mongodb://127.0.0.1:1/", "test")

	const n = 50

	consumers := make([]*Consumer, n)

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			c, err := r.Create(ctx, nil)
			consumers[i] = c
			return err
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, n, r.Count())

	ids := make(map[uint64]struct{}, n)
	for _, c := range consumers {
		ids[c.ID()] = struct{}{}
	}

	assert.Len(t, ids, n)

	for _, c := range consumers {
		g.Go(func() error {
			r.Close(c)
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Zero(t, r.Count())
}

func TestRegistryMetrics(t *testing.T) {
	ctx := testutil.Ctx(t)
	r := setup(t, "mongodb://127.0.0.1:1/", "test")

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(r))

	for range 3 {
		_, err := r.Create(ctx, nil)
		require.NoError(t, err)
	}

	c, err := r.Create(ctx, nil)
	require.NoError(t, err)
	require.True(t, r.Close(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	actual := make(map[string]float64, len(families))
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		actual[mf.GetName()] = value(mf.GetType(), mf.GetMetric()[0])
	}

	expected := map[string]float64{
		"mongohelper_consumers_created_total": 4,
		"mongohelper_consumers_closed_total":  1,
		"mongohelper_consumers_current":       3,
	}
	assert.Equal(t, expected, actual)
}

func value(typ dto.MetricType, m *dto.Metric) float64 {
	switch typ {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return -1
	}
}
