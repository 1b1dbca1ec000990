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

package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/FerretDB/mongohelper/internal/conn"
	"github.com/FerretDB/mongohelper/mongohelper"
)

// ping connects to MongoDB and pings the primary.
func ping(ctx context.Context, h *mongohelper.Helper, l *zap.Logger) error {
	start := time.Now()

	c, err := h.Connection(ctx)
	if err != nil {
		return err
	}

	if err = c.Ping(ctx); err != nil {
		return err
	}

	l.Info(
		"Ping successful.",
		zap.String("uri", conn.Redact(c.URI())),
		zap.Time("connected", c.Created()),
		zap.Duration("took", time.Since(start)),
	)

	return nil
}
