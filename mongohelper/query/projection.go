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
	"errors"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrMixedProjection is returned when both included and excluded fields are given.
var ErrMixedProjection = errors.New("query: projection cannot both include and exclude fields")

// SelectFields returns a projection including or excluding given fields.
//
// Duplicates are removed. _id is excluded from inclusion projection unless listed.
// Both lists can't be non-empty at the same time; [ErrMixedProjection] is returned in that case.
// Nil projection is returned if both are empty.
func SelectFields(include, exclude []string) (bson.D, error) {
	switch {
	case len(include) > 0 && len(exclude) > 0:
		return nil, ErrMixedProjection

	case len(include) > 0:
		include = lo.Uniq(include)

		res := lo.Map(include, func(f string, _ int) bson.E {
			return bson.E{Key: f, Value: 1}
		})

		if !lo.Contains(include, "_id") {
			res = append(res, bson.E{Key: "_id", Value: 0})
		}

		return res, nil

	case len(exclude) > 0:
		return lo.Map(lo.Uniq(exclude), func(f string, _ int) bson.E {
			return bson.E{Key: f, Value: 0}
		}), nil

	default:
		return nil, nil
	}
}

// SelectWithRegex returns a filter and a projection for documents where field matches pattern;
// only that field is returned.
func SelectWithRegex(field, pattern string) (filter, projection bson.D) {
	filter = bson.D{{field, primitive.Regex{Pattern: pattern}}}
	projection = bson.D{{field, 1}, {"_id", 0}}

	return filter, projection
}
