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

package query

import (
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
)

// Set returns {$set: fields}.
func Set(fields bson.D) bson.D { return bson.D{{"$set", fields}} }

// Unset returns {$unset: {field: ""}} for all given fields.
func Unset(fields ...string) bson.D {
	unset := lo.Map(fields, func(f string, _ int) bson.E {
		return bson.E{Key: f, Value: ""}
	})

	return bson.D{{"$unset", bson.D(unset)}}
}

// Inc returns {$inc: {field: by}}.
func Inc(field string, by any) bson.D { return bson.D{{"$inc", bson.D{{field, by}}}} }

// Push returns {$push: {field: value}}.
func Push(field string, value any) bson.D { return bson.D{{"$push", bson.D{{field, value}}}} }

// Pull returns {$pull: {field: cond}}.
func Pull(field string, cond any) bson.D { return bson.D{{"$pull", bson.D{{field, cond}}}} }

// Merge concatenates documents; later duplicate keys are kept as is.
//
// It is useful for combining several conditions of different fields into one filter,
// and several update operators into one update document.
func Merge(docs ...bson.D) bson.D {
	return lo.Flatten(lo.Map(docs, func(d bson.D, _ int) []bson.E {
		return d
	}))
}
