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

package conn

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FerretDB/mongohelper/internal/config"
	"github.com/FerretDB/mongohelper/internal/mongoerrors"
	"github.com/FerretDB/mongohelper/internal/util/lazyerrors"
)

// Factory lazily establishes a single shared [Connection].
//
// The first successful call to [Factory.Get] or [Factory.Connect] creates the connection;
// all subsequent calls return it regardless of their arguments.
// There is no automatic reconnect: the driver handles transient network problems itself,
// and a permanently broken deployment requires a new Factory.
//
// All Factory's methods are thread-safe.
type Factory struct {
	l    *zap.Logger
	dial DialFunc
	uri  string

	rw     sync.RWMutex
	conn   *Connection
	closed bool
}

// NewFactoryOpts represents [NewFactory] options.
type NewFactoryOpts struct {
	// Default connection URI. If empty, the URI passed to Get/Connect or found in the environment is used.
	URI string

	// Dial establishes the connection. If nil, [Dial] is used.
	Dial DialFunc

	Logger *zap.Logger
}

// NewFactory creates a new Factory.
//
// It does not connect; the connection is established on the first use.
func NewFactory(opts *NewFactoryOpts) *Factory {
	if opts == nil {
		opts = new(NewFactoryOpts)
	}

	f := &Factory{
		l:    opts.Logger,
		dial: opts.Dial,
		uri:  opts.URI,
	}

	if f.l == nil {
		f.l = zap.NewNop()
	}

	if f.dial == nil {
		f.dial = Dial
	}

	return f
}

// Get returns the shared connection, establishing it on the first call.
//
// On the first call, URI is resolved from uri argument, factory's default URI, and the environment,
// in that order; [mongoerrors.ErrConfiguration] is returned if none is found.
// Connection failures are returned as [mongoerrors.ErrConnection].
// On subsequent calls, uri argument is ignored.
func (f *Factory) Get(ctx context.Context, uri string) (*Connection, error) {
	f.rw.RLock()
	c, closed := f.conn, f.closed
	f.rw.RUnlock()

	if closed {
		return nil, mongoerrors.New(mongoerrors.ErrConnection, "connection factory is closed")
	}

	if c != nil {
		f.warnIgnored(c, uri)
		return c, nil
	}

	c, _, err := f.connect(ctx, uri)

	return c, err
}

// Connect explicitly establishes the shared connection.
//
// It returns true if the connection was established by that call.
// If the connection already exists, the attempt is logged and ignored, and false is returned.
func (f *Factory) Connect(ctx context.Context, uri string) (bool, error) {
	_, created, err := f.connect(ctx, uri)
	if err != nil {
		return false, err
	}

	if !created {
		f.l.Warn(
			"Connection is already established, explicit connect is ignored",
			zap.Stringer("code", mongoerrors.ErrDuplicateInitialization),
		)
	}

	return created, nil
}

// connect returns the existing connection or establishes a new one.
//
// Concurrent callers are serialized, so dial happens at most once.
func (f *Factory) connect(ctx context.Context, uri string) (*Connection, bool, error) {
	f.rw.Lock()
	defer f.rw.Unlock()

	if f.closed {
		return nil, false, mongoerrors.New(mongoerrors.ErrConnection, "connection factory is closed")
	}

	if f.conn != nil {
		return f.conn, false, nil
	}

	if uri == "" {
		uri = f.uri
	}

	uri, err := config.ResolveURI(uri)
	if err != nil {
		return nil, false, err
	}

	redacted := Redact(uri)
	f.l.Info("Connecting to MongoDB...", zap.String("uri", redacted))

	start := time.Now()

	client, err := f.dial(ctx, uri)
	if err != nil {
		f.l.Error("Failed to connect to MongoDB", zap.String("uri", redacted), zap.Error(err))
		return nil, false, mongoerrors.Wrap(mongoerrors.ErrConnection, "failed to connect to "+redacted, err)
	}

	f.conn = &Connection{
		client:  client,
		uri:     uri,
		created: time.Now(),
	}

	f.l.Info("Connected to MongoDB", zap.String("uri", redacted), zap.Duration("took", time.Since(start)))

	return f.conn, true, nil
}

// warnIgnored logs a warning if non-empty uri differs from the one used for the existing connection.
func (f *Factory) warnIgnored(c *Connection, uri string) {
	if uri == "" || uri == c.uri {
		return
	}

	f.l.Warn(
		"Connection is already established, URI argument is ignored",
		zap.String("uri", Redact(uri)),
		zap.String("used", Redact(c.uri)),
	)
}

// Initialized returns true if the shared connection exists.
func (f *Factory) Initialized() bool {
	f.rw.RLock()
	defer f.rw.RUnlock()

	return f.conn != nil
}

// Close disconnects the shared connection, if any.
//
// After that, Get and Connect return [mongoerrors.ErrConnection].
// It is safe to call Close multiple times.
func (f *Factory) Close(ctx context.Context) error {
	f.rw.Lock()
	defer f.rw.Unlock()

	f.closed = true

	if f.conn == nil {
		return nil
	}

	c := f.conn
	f.conn = nil

	if err := c.client.Disconnect(ctx); err != nil {
		return lazyerrors.Error(err)
	}

	f.l.Info("Disconnected from MongoDB", zap.String("uri", Redact(c.uri)))

	return nil
}
