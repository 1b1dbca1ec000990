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
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/FerretDB/mongohelper/internal/util/lazyerrors"
	"github.com/FerretDB/mongohelper/mongohelper"
)

// batchFile represents the file with operations in MongoDB Extended JSON.
//
//	{
//	  "database": "shop",
//	  "operations": [
//	    {"kind": "insert-one", "collection": "orders", "document": {"item": "book"}},
//	    {"kind": "update-one", "collection": "stock", "filter": {"item": "book"}, "update": {"$inc": {"qty": -1}}}
//	  ]
//	}
type batchFile struct {
	Database   string           `bson:"database"`
	Operations []batchOperation `bson:"operations"`
}

// batchOperation represents a single operation of batchFile.
type batchOperation struct {
	Kind       string   `bson:"kind"`
	Collection string   `bson:"collection"`
	Filter     bson.D   `bson:"filter"`
	Update     any      `bson:"update"`
	Document   bson.D   `bson:"document"`
	Documents  []bson.D `bson:"documents"`
	Projection bson.D   `bson:"projection"`
	Upsert     bool     `bson:"upsert"`
}

// parseBatch parses batch file data and returns the database name (that may be empty) and operations.
func parseBatch(data []byte) (string, []mongohelper.Operation, error) {
	var f batchFile
	if err := bson.UnmarshalExtJSON(data, false, &f); err != nil {
		return "", nil, lazyerrors.Error(err)
	}

	ops := make([]mongohelper.Operation, len(f.Operations))

	for i, o := range f.Operations {
		kind, err := mongohelper.ParseKind(o.Kind)
		if err != nil {
			return "", nil, fmt.Errorf("operation #%d: %w", i, err)
		}

		if o.Collection == "" {
			return "", nil, fmt.Errorf("operation #%d: collection is not set", i)
		}

		filter := o.Filter
		if filter == nil {
			filter = bson.D{}
		}

		p := mongohelper.Payload{
			Filter: filter,
			Update: o.Update,
			Documents: lo.Map(o.Documents, func(d bson.D, _ int) any {
				return d
			}),
			Upsert: o.Upsert,
		}

		if o.Document != nil {
			p.Document = o.Document
		}

		if o.Projection != nil {
			p.Projection = o.Projection
		}

		if ops[i], err = mongohelper.MakeOperation(kind, o.Collection, p); err != nil {
			return "", nil, fmt.Errorf("operation #%d: %w", i, err)
		}
	}

	return f.Database, ops, nil
}

// writeResults writes results to w as relaxed Extended JSON, one per line.
func writeResults(w io.Writer, res []mongohelper.Result) error {
	for _, r := range res {
		doc := bson.D{
			{"id", r.ID},
			{"kind", r.Kind.String()},
			{"collection", r.Collection},
			{"result", r.Raw},
		}

		b, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return lazyerrors.Error(err)
		}

		if _, err = fmt.Fprintln(w, string(b)); err != nil {
			return lazyerrors.Error(err)
		}
	}

	return nil
}

// execFile executes operations from the file in one batch and writes results to w.
func execFile(ctx context.Context, h *mongohelper.Helper, path string, w io.Writer, l *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return lazyerrors.Error(err)
	}

	db, ops, err := parseBatch(data)
	if err != nil {
		return err
	}

	c, err := h.CreateConsumer(ctx, db)
	if err != nil {
		return err
	}

	defer h.CloseConsumer(c)

	l.Debug("Executing batch", zap.String("db", c.DatabaseName()), zap.Int("operations", len(ops)))

	res, err := h.ExecuteBatch(ctx, c, ops)
	if err != nil {
		return err
	}

	l.Info("Batch executed.", zap.String("db", c.DatabaseName()), zap.Int("operations", len(res)))

	return writeResults(w, res)
}
