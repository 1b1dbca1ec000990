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

// Package config resolves connection settings.
//
// Each setting is taken from the explicit value first (if set),
// then from the first set environment variable among the recognized names.
package config

import (
	"strings"

	"github.com/AlekSi/pointer"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/FerretDB/mongohelper/internal/mongoerrors"
	"github.com/FerretDB/mongohelper/internal/util/must"
)

// URIEnvVars lists environment variables with connection URI, in priority order.
var URIEnvVars = []string{
	"MONGO_CONNECTION_STRING",
	"MONGO_CONN_STR",
	"MONGODB_URI",
	"MONGO_URI",
	"MONGO_URL",
}

const (
	// DatabaseEnvVar is the environment variable with the default database name.
	DatabaseEnvVar = "MONGO_DB_NAME"

	// ReplicaSetEnvVar is the environment variable with the replica set flag (boolean-like string).
	ReplicaSetEnvVar = "MONGO_REPLICA_SET"
)

// viper keys.
const (
	uriKey        = "uri"
	databaseKey   = "database"
	replicaSetKey = "replica_set"
)

// Config represents connection settings.
type Config struct {
	URI        string
	Database   string
	ReplicaSet *bool
}

// env returns a new viper instance bound to the recognized environment variables.
//
// Viper reads the environment on each Get call, so the instance reflects the current environment.
func env() *viper.Viper {
	v := viper.New()

	must.NoError(v.BindEnv(append([]string{uriKey}, URIEnvVars...)...))
	must.NoError(v.BindEnv(databaseKey, DatabaseEnvVar))
	must.NoError(v.BindEnv(replicaSetKey, ReplicaSetEnvVar))

	return v
}

// ResolveURI returns explicit URI if it is not empty, or URI from the environment.
//
// It returns [mongoerrors.ErrConfiguration] if none is found.
func ResolveURI(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if uri := env().GetString(uriKey); uri != "" {
		return uri, nil
	}

	return "", mongoerrors.New(
		mongoerrors.ErrConfiguration,
		"no connection URI: pass it explicitly or set one of "+strings.Join(URIEnvVars, ", "),
	)
}

// ResolveDatabase returns explicit database name if it is not empty,
// database name from the environment, or the default database of the given URI.
//
// It returns [mongoerrors.ErrConfiguration] if none is found.
func ResolveDatabase(explicit, uri string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if db := env().GetString(databaseKey); db != "" {
		return db, nil
	}

	if db := DatabaseFromURI(uri); db != "" {
		return db, nil
	}

	return "", mongoerrors.New(
		mongoerrors.ErrConfiguration,
		"no database name: pass it explicitly, set "+DatabaseEnvVar+", or add it to the connection URI",
	)
}

// ResolveReplicaSet returns explicit replica set flag if it is not nil,
// or the flag from the environment, or false.
//
// It returns [mongoerrors.ErrConfiguration] if the environment variable is not a boolean-like string.
func ResolveReplicaSet(explicit *bool) (bool, error) {
	if explicit != nil {
		return *explicit, nil
	}

	s := env().GetString(replicaSetKey)
	if s == "" {
		return false, nil
	}

	b, err := cast.ToBoolE(s)
	if err != nil {
		return false, mongoerrors.Wrap(mongoerrors.ErrConfiguration, "invalid "+ReplicaSetEnvVar+" value", err)
	}

	return b, nil
}

// Resolve returns a copy of c with all settings resolved.
//
// Database name is left empty if it is not found; it could be given later, per consumer.
func Resolve(c *Config) (*Config, error) {
	if c == nil {
		c = new(Config)
	}

	uri, err := ResolveURI(c.URI)
	if err != nil {
		return nil, err
	}

	rs, err := ResolveReplicaSet(c.ReplicaSet)
	if err != nil {
		return nil, err
	}

	db, err := ResolveDatabase(c.Database, uri)
	if err != nil && !mongoerrors.Is(err, mongoerrors.ErrConfiguration) {
		return nil, err
	}

	return &Config{
		URI:        uri,
		Database:   db,
		ReplicaSet: pointer.ToBool(rs),
	}, nil
}

// DatabaseFromURI returns the default database from the connection URI path, if any.
func DatabaseFromURI(uri string) string {
	cs, err := connstring.Parse(uri)
	if err != nil {
		return ""
	}

	return cs.Database
}
