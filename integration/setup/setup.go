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

// Package setup provides integration tests setup helpers.
package setup

import (
	"context"
	"flag"
	"runtime/trace"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/FerretDB/mongohelper/internal/util/testutil"
	"github.com/FerretDB/mongohelper/mongohelper"
)

// Flags.
var (
	targetURLF        = flag.String("target-url", "", "target MongoDB URL; if empty, integration tests are skipped")
	targetReplicaSetF = flag.Bool("target-replica-set", false, "target MongoDB is a replica set; enables transaction tests")

	// Disable noisy setup logs by default.
	debugSetupF = flag.Bool("debug-setup", false, "enable debug logs for tests setup")
	logLevelF   = zap.LevelFlag("log-level", zap.DebugLevel, "log level for tests")
)

// SetupOpts represents setup options.
type SetupOpts struct {
	// Execute batches in transactions. The test is skipped if the target is not a replica set.
	ReplicaSet bool

	// Collection handles cache keying.
	CacheKeying mongohelper.Keying
}

// SetupResult represents setup results.
type SetupResult struct {
	Ctx      context.Context
	Helper   *mongohelper.Helper
	Consumer *mongohelper.Consumer
}

// IsReplicaSet returns true if the target is a replica set.
func IsReplicaSet() bool {
	return *targetReplicaSetF
}

// SetupWithOpts setups the test according to given options.
//
// The consumer is bound to a temporary test-specific database that is dropped after the test.
func SetupWithOpts(tb testing.TB, opts *SetupOpts) *SetupResult {
	tb.Helper()

	if *targetURLF == "" {
		tb.Skip("-target-url is not set, skipping integration test")
	}

	if opts == nil {
		opts = new(SetupOpts)
	}

	if opts.ReplicaSet && !*targetReplicaSetF {
		tb.Skip("-target-replica-set is not set, skipping transaction test")
	}

	ctx, cancel := context.WithCancel(testutil.Ctx(tb))

	setupCtx, span := otel.Tracer("").Start(ctx, "SetupWithOpts")
	defer span.End()

	defer trace.StartRegion(setupCtx, "SetupWithOpts").End()

	level := zap.NewAtomicLevelAt(zap.ErrorLevel)
	if *debugSetupF {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger := testutil.LevelLogger(tb, level)

	h, err := mongohelper.New(&mongohelper.Config{
		URI:         *targetURLF,
		ReplicaSet:  pointer.ToBool(opts.ReplicaSet),
		CacheKeying: opts.CacheKeying,
		Logger:      logger,
	})
	require.NoError(tb, err)

	dbName := testutil.DatabaseName(tb)

	c, err := h.CreateConsumer(setupCtx, dbName)
	require.NoError(tb, err)

	db := c.Database()

	// drop remnants of the previous failed run
	require.NoError(tb, db.Drop(setupCtx))

	tb.Cleanup(func() {
		defer cancel()

		if tb.Failed() {
			tb.Logf("Keeping database %s for debugging.", dbName)
		} else {
			require.NoError(tb, db.Drop(ctx))
		}

		require.NoError(tb, h.Close(ctx))
	})

	level.SetLevel(*logLevelF)

	return &SetupResult{
		Ctx:      ctx,
		Helper:   h,
		Consumer: c,
	}
}

// Setup setups the test in standalone mode.
func Setup(tb testing.TB) (context.Context, *mongohelper.Helper, *mongohelper.Consumer) {
	tb.Helper()

	s := SetupWithOpts(tb, nil)

	return s.Ctx, s.Helper, s.Consumer
}
