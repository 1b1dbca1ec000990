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

package operation

import (
	"fmt"

	"github.com/FerretDB/mongohelper/internal/mongoerrors"
)

// Kind represents operation kind.
type Kind int

// Operation kinds.
const (
	kindUnset Kind = iota
	KindInsertOne
	KindInsertMany
	KindUpdateOne
	KindUpdateMany
	KindDeleteOne
	KindDeleteMany
	KindFindOne
	KindFindMany
)

var kindNames = map[Kind]string{
	KindInsertOne:  "insert-one",
	KindInsertMany: "insert-many",
	KindUpdateOne:  "update-one",
	KindUpdateMany: "update-many",
	KindDeleteOne:  "delete-one",
	KindDeleteMany: "delete-many",
	KindFindOne:    "find-one",
	KindFindMany:   "find-many",
}

// Kinds returns all valid kinds.
func Kinds() []Kind {
	return []Kind{
		KindInsertOne, KindInsertMany,
		KindUpdateOne, KindUpdateMany,
		KindDeleteOne, KindDeleteMany,
		KindFindOne, KindFindMany,
	}
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid returns true if k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind returns kind by its name, like "insert-one".
//
// It returns [mongoerrors.ErrUnsupportedOperation] for unknown names.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}

	return kindUnset, mongoerrors.New(mongoerrors.ErrUnsupportedOperation, fmt.Sprintf("unknown operation kind %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, mongoerrors.New(mongoerrors.ErrUnsupportedOperation, "unknown operation kind "+k.String())
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = v

	return nil
}

// check interfaces
var (
	_ fmt.Stringer = kindUnset
)
