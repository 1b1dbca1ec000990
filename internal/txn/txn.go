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

// Package txn executes batches of operations, atomically when the deployment supports it.
package txn

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/FerretDB/mongohelper/internal/consumer"
	"github.com/FerretDB/mongohelper/internal/mongoerrors"
	"github.com/FerretDB/mongohelper/internal/operation"
	"github.com/FerretDB/mongohelper/internal/util/lazyerrors"
	"github.com/FerretDB/mongohelper/internal/util/observability"
)

// Mode represents batch execution mode.
type Mode int

const (
	// Standalone mode commits each operation independently.
	//
	// A failure stops the batch; operations committed before it stay committed.
	Standalone Mode = iota

	// ReplicaSet mode commits all operations in a single transaction.
	//
	// A failure aborts the transaction; nothing is visible outside of it.
	ReplicaSet
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Standalone:
		return "standalone"
	case ReplicaSet:
		return "replica-set"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Result is the outcome of one committed operation.
type Result struct {
	ID         string
	Kind       operation.Kind
	Collection string

	// Raw result; see [operation.Commit] for types.
	Raw any
}

// Resolver returns commit target for the consumer's collection.
type Resolver interface {
	Target(c *consumer.Consumer, coll string) operation.Target
}

// SessionStarter starts a new session for the consumer.
type SessionStarter func(ctx context.Context, c *consumer.Consumer) (mongo.Session, error)

// StartSession is the default [SessionStarter].
func StartSession(_ context.Context, c *consumer.Consumer) (mongo.Session, error) {
	return c.Connection().Client().StartSession()
}

// Executor executes batches of operations.
//
// Executor is safe for concurrent use; each call uses its own session.
type Executor struct {
	r            Resolver
	l            *zap.Logger
	mode         func() (Mode, error)
	startSession SessionStarter
	m            *metrics
}

// NewExecutorOpts represents [NewExecutor] options.
type NewExecutorOpts struct {
	Resolver Resolver

	// Mode is called once per batch. Nil means Standalone.
	Mode func() (Mode, error)

	// StartSession starts sessions for ReplicaSet mode. Nil means [StartSession].
	StartSession SessionStarter

	Logger *zap.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(opts *NewExecutorOpts) *Executor {
	e := &Executor{
		r:            opts.Resolver,
		l:            opts.Logger,
		mode:         opts.Mode,
		startSession: opts.StartSession,
		m:            newMetrics(),
	}

	if e.l == nil {
		e.l = zap.NewNop()
	}

	if e.mode == nil {
		e.mode = func() (Mode, error) { return Standalone, nil }
	}

	if e.startSession == nil {
		e.startSession = StartSession
	}

	return e
}

// ExecuteBatch commits operations in order and returns one result per operation, in the same order.
//
// Mode is resolved once per call.
// An empty batch returns an empty result without resolving the mode or starting a session.
// A closed consumer is rejected with [mongoerrors.ErrConsumerClosed] before anything is committed.
//
// On failure, no results are returned. The error is [*mongoerrors.OperationError]
// wrapping the original error of the failed operation, or an error of the mode resolution or session handling.
// In Standalone mode, operations before the failed one stay committed and operations after it are not attempted.
// In ReplicaSet mode, the transaction is aborted.
func (e *Executor) ExecuteBatch(ctx context.Context, c *consumer.Consumer, ops []operation.Operation) ([]Result, error) {
	if len(ops) == 0 {
		return []Result{}, nil
	}

	if c.Closed() {
		return nil, mongoerrors.New(mongoerrors.ErrConsumerClosed, fmt.Sprintf("consumer %d is closed", c.ID()))
	}

	mode, err := e.mode()
	if err != nil {
		return nil, err
	}

	ctx, span := observability.Tracer().Start(ctx, "ExecuteBatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("mode", mode.String()),
		attribute.Int("operations", len(ops)),
		attribute.String("db", c.DatabaseName()),
	)

	start := time.Now()

	var res []Result

	switch mode {
	case Standalone:
		res, err = e.commitAll(ctx, c, ops)
	case ReplicaSet:
		res, err = e.commitInTransaction(ctx, c, ops)
	default:
		err = lazyerrors.Errorf("unexpected mode %s", mode)
	}

	e.m.observeCommitted(mode, res, err)
	e.m.batches.WithLabelValues(mode.String(), resultLabel(err)).Inc()
	e.m.duration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		e.l.Debug(
			"Batch failed",
			zap.Stringer("mode", mode),
			zap.Int("operations", len(ops)),
			zap.Error(err),
		)

		return nil, err
	}

	e.l.Debug(
		"Batch executed",
		zap.Stringer("mode", mode),
		zap.Int("operations", len(ops)),
		zap.Duration("took", time.Since(start)),
	)

	return res, nil
}

// commitAll commits operations in order, stopping at the first failure.
// On failure, results of operations committed before it are returned together with the error.
//
// If ctx is a [mongo.SessionContext], all operations are a part of its transaction.
func (e *Executor) commitAll(ctx context.Context, c *consumer.Consumer, ops []operation.Operation) ([]Result, error) {
	res := make([]Result, 0, len(ops))

	for i, op := range ops {
		if op == nil {
			return res, &mongoerrors.OperationError{
				Index: i,
				Err:   mongoerrors.New(mongoerrors.ErrUnsupportedOperation, "nil operation"),
			}
		}

		raw, err := operation.Commit(ctx, e.r.Target(c, op.Collection()), op)
		if err != nil {
			e.m.operations.WithLabelValues(op.Kind().String(), "error").Inc()

			return res, &mongoerrors.OperationError{
				Index:      i,
				ID:         op.ID(),
				Kind:       op.Kind().String(),
				Collection: op.Collection(),
				Err:        err,
			}
		}

		res = append(res, Result{
			ID:         op.ID(),
			Kind:       op.Kind(),
			Collection: op.Collection(),
			Raw:        raw,
		})
	}

	return res, nil
}

// commitInTransaction commits all operations in a single transaction of a new session.
//
// The transaction is aborted on every exit path other than successful commit, including panics.
// The session is always ended.
// On failure, results of operations that were rolled back are returned together with the error.
func (e *Executor) commitInTransaction(ctx context.Context, c *consumer.Consumer, ops []operation.Operation) ([]Result, error) {
	sess, err := e.startSession(ctx, c)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	defer sess.EndSession(context.WithoutCancel(ctx))

	var res []Result

	err = mongo.WithSession(ctx, sess, func(sctx mongo.SessionContext) error {
		if err := sess.StartTransaction(); err != nil {
			return lazyerrors.Error(err)
		}

		var commitCalled bool

		defer func() {
			if commitCalled {
				return
			}

			if err := sess.AbortTransaction(context.WithoutCancel(sctx)); err != nil {
				e.l.Warn("Failed to abort transaction", zap.Error(err))
				return
			}

			e.l.Debug("Transaction aborted")
		}()

		var err error
		if res, err = e.commitAll(sctx, c, ops); err != nil {
			return err
		}

		commitCalled = true

		return sess.CommitTransaction(sctx)
	})

	return res, err
}

// Describe implements prometheus.Collector.
func (e *Executor) Describe(ch chan<- *prometheus.Desc) {
	e.m.Describe(ch)
}

// Collect implements prometheus.Collector.
func (e *Executor) Collect(ch chan<- prometheus.Metric) {
	e.m.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*Executor)(nil)
	_ fmt.Stringer         = Standalone
)
