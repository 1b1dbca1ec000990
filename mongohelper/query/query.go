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

// Package query provides builders of filter, update and projection documents.
//
// All builders are pure functions; results can be passed to operations and collection handles as is.
package query

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// op returns {field: {operator: value}}.
func op(field, operator string, value any) bson.D {
	return bson.D{{field, bson.D{{operator, value}}}}
}

// Eq returns {field: {$eq: value}}.
func Eq(field string, value any) bson.D { return op(field, "$eq", value) }

// Ne returns {field: {$ne: value}}.
func Ne(field string, value any) bson.D { return op(field, "$ne", value) }

// Gt returns {field: {$gt: value}}.
func Gt(field string, value any) bson.D { return op(field, "$gt", value) }

// Gte returns {field: {$gte: value}}.
func Gte(field string, value any) bson.D { return op(field, "$gte", value) }

// Lt returns {field: {$lt: value}}.
func Lt(field string, value any) bson.D { return op(field, "$lt", value) }

// Lte returns {field: {$lte: value}}.
func Lte(field string, value any) bson.D { return op(field, "$lte", value) }

// In returns {field: {$in: values}}.
func In(field string, values ...any) bson.D { return op(field, "$in", bson.A(values)) }

// Nin returns {field: {$nin: values}}.
func Nin(field string, values ...any) bson.D { return op(field, "$nin", bson.A(values)) }

// Exists returns {field: {$exists: exists}}.
func Exists(field string, exists bool) bson.D { return op(field, "$exists", exists) }

// Type returns {field: {$type: t}}; t is a type alias like "string" or a number.
func Type(field string, t any) bson.D { return op(field, "$type", t) }

// All returns {field: {$all: values}}.
func All(field string, values ...any) bson.D { return op(field, "$all", bson.A(values)) }

// Size returns {field: {$size: n}}.
func Size(field string, n int) bson.D { return op(field, "$size", n) }

// ElemMatch returns {field: {$elemMatch: cond}}.
func ElemMatch(field string, cond any) bson.D { return op(field, "$elemMatch", cond) }

// Mod returns {field: {$mod: [divisor, remainder]}}.
func Mod(field string, divisor, remainder int64) bson.D {
	return op(field, "$mod", bson.A{divisor, remainder})
}

// Regex returns {field: {$regex: pattern, $options: options}}.
//
// Options are omitted if empty.
func Regex(field, pattern, options string) bson.D {
	return bson.D{{field, primitive.Regex{Pattern: pattern, Options: options}}}
}

// Not returns {field: {$not: cond}}.
func Not(field string, cond any) bson.D { return op(field, "$not", cond) }

// And returns {$and: conds}.
func And(conds ...any) bson.D { return bson.D{{"$and", bson.A(conds)}} }

// Or returns {$or: conds}.
func Or(conds ...any) bson.D { return bson.D{{"$or", bson.A(conds)}} }

// Nor returns {$nor: conds}.
func Nor(conds ...any) bson.D { return bson.D{{"$nor", bson.A(conds)}} }

// Text returns {$text: {$search: search}}.
func Text(search string) bson.D { return bson.D{{"$text", bson.D{{"$search", search}}}} }

// Expr returns {$expr: expr}.
func Expr(expr any) bson.D { return bson.D{{"$expr", expr}} }
