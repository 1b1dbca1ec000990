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

// Command mongohelper checks MongoDB connectivity and executes batches of operations.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "golang.org/x/crypto/x509roots/fallback" // register root TLS certificates for mongodb+srv in minimal images
	"golang.org/x/sync/errgroup"

	"github.com/FerretDB/mongohelper/build/version"
	"github.com/FerretDB/mongohelper/internal/config"
	"github.com/FerretDB/mongohelper/internal/conn"
	"github.com/FerretDB/mongohelper/internal/util/ctxutil"
	"github.com/FerretDB/mongohelper/internal/util/debug"
	"github.com/FerretDB/mongohelper/internal/util/debugbuild"
	"github.com/FerretDB/mongohelper/internal/util/logging"
	"github.com/FerretDB/mongohelper/internal/util/must"
	"github.com/FerretDB/mongohelper/internal/util/observability"
	"github.com/FerretDB/mongohelper/mongohelper"
)

// The cli struct represents all command-line commands, fields and flags.
// It's used for parsing the user input.
//
//nolint:lll // some tags are long
var cli struct {
	URI        string        `default:""      help:"MongoDB connection URI; if empty, ${uri_env_vars} are checked."`
	Database   string        `default:""      help:"Database name; if empty, ${database_env_var} or URI path is used."`
	ReplicaSet string        `default:"auto"  help:"Execute batches in a transaction: 'true', 'false', or 'auto' to use ${replica_set_env_var}." enum:"auto,true,false"`
	NoPing     bool          `default:"false" help:"Do not ping the deployment after connecting."`
	Timeout    time.Duration `default:"30s"   help:"Timeout for the whole command."`

	DebugAddr    string `default:"-" help:"Listen address for HTTP handlers for metrics, pprof, etc; '-' to disable."`
	OtelEndpoint string `default:""  help:"OTLP HTTP endpoint for traces; empty to disable." name:"otel-endpoint"`

	Log struct {
		Level  string `default:"${default_log_level}" help:"${help_log_level}"`
		Format string `default:"console"              help:"${help_log_format}"                     enum:"${enum_log_format}"`
		UUID   bool   `default:"false"                help:"Add instance UUID to all log messages." negatable:""`
	} `embed:"" prefix:"log-"`

	Version struct{} `cmd:"" help:"Print version to stdout and exit."`

	Ping struct{} `cmd:"" help:"Connect to MongoDB and check that the primary is reachable."`

	Exec struct {
		File string `arg:"" help:"Path to the Extended JSON file with operations." type:"existingfile"`
	} `cmd:"" help:"Execute a batch of operations from the file."`
}

// Additional variables for the kong parsers.
var (
	logLevels = []string{
		zap.DebugLevel.String(),
		zap.InfoLevel.String(),
		zap.WarnLevel.String(),
		zap.ErrorLevel.String(),
	}

	kongOptions = []kong.Option{
		kong.Vars{
			"default_log_level": defaultLogLevel().String(),

			"enum_log_format": strings.Join(logging.Formats, ","),

			"help_log_format": fmt.Sprintf("Log format: '%s'.", strings.Join(logging.Formats, "', '")),
			"help_log_level":  fmt.Sprintf("Log level: '%s'.", strings.Join(logLevels, "', '")),

			"uri_env_vars":        strings.Join(config.URIEnvVars, ", "),
			"database_env_var":    config.DatabaseEnvVar,
			"replica_set_env_var": config.ReplicaSetEnvVar,
		},
		kong.DefaultEnvars("MONGOHELPER"),
	}
)

func main() {
	kctx := kong.Parse(&cli, kongOptions...)

	run(kctx.Command())
}

// defaultLogLevel returns the default log level.
func defaultLogLevel() zapcore.Level {
	if version.Get().DebugBuild {
		return zap.DebugLevel
	}

	return zap.InfoLevel
}

// setupLogger setups zap logger.
func setupLogger(instanceID string) *zap.Logger {
	info := version.Get()

	startupFields := []zap.Field{
		zap.String("version", info.Version),
		zap.String("commit", info.Commit),
		zap.Bool("dirty", info.Dirty),
		zap.Bool("debugBuild", info.DebugBuild),
		zap.Any("buildEnvironment", info.BuildEnvironment),
	}

	logUUID := instanceID

	// unless requested, don't add UUID to all messages, but log it once at startup
	if !cli.Log.UUID {
		startupFields = append(startupFields, zap.String("uuid", logUUID))
		logUUID = ""
	}

	level, err := zapcore.ParseLevel(cli.Log.Level)
	if err != nil {
		log.Fatal(err)
	}

	l := logging.Setup(level, cli.Log.Format, logUUID)

	l.Debug("Starting mongohelper "+info.Version+"...", startupFields...)

	if debugbuild.Enabled {
		l.Info("This is debug build. The performance will be affected.")
	}

	return l
}

// replicaSet returns explicit replica set flag, or nil if it should be taken from the environment.
func replicaSet() *bool {
	switch cli.ReplicaSet {
	case "true":
		return pointer.ToBool(true)
	case "false":
		return pointer.ToBool(false)
	default:
		return nil
	}
}

// resolveSettings resolves connection settings from flags and the environment.
func resolveSettings() (*config.Config, error) {
	return config.Resolve(&config.Config{
		URI:        cli.URI,
		Database:   cli.Database,
		ReplicaSet: replicaSet(),
	})
}

// dumpMetrics dumps all Prometheus metrics to stderr.
func dumpMetrics(g prometheus.Gatherer) {
	mfs := must.NotFail(g.Gather())

	for _, mf := range mfs {
		must.NotFail(expfmt.MetricFamilyToText(os.Stderr, mf))
	}
}

// run sets up environment based on provided flags and runs the command.
func run(command string) {
	info := version.Get()

	if command == "version" {
		fmt.Fprintln(os.Stdout, "version:", info.Version)
		fmt.Fprintln(os.Stdout, "commit:", info.Commit)
		fmt.Fprintln(os.Stdout, "dirty:", info.Dirty)
		fmt.Fprintln(os.Stdout, "debugBuild:", info.DebugBuild)

		return
	}

	logger := setupLogger(uuid.NewString())

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf)); err != nil {
		logger.Sugar().Warnf("Failed to set GOMAXPROCS: %s.", err)
	}

	ctx, stop := ctxutil.SigTerm(context.Background())
	defer stop()

	shutdownOtel, err := observability.SetupOtel(ctx, "mongohelper", info.Version, cli.OtelEndpoint)
	if err != nil {
		logger.Sugar().Fatalf("Failed to set up OpenTelemetry: %s.", err)
	}

	settings, err := resolveSettings()
	if err != nil {
		logger.Sugar().Fatal(err)
	}

	logger.Info(
		"Resolved connection settings.",
		zap.String("uri", conn.Redact(settings.URI)),
		zap.String("database", settings.Database),
		zap.Boolp("replica_set", settings.ReplicaSet),
	)

	h, err := mongohelper.New(&mongohelper.Config{
		URI:        settings.URI,
		Database:   settings.Database,
		ReplicaSet: settings.ReplicaSet,
		NoPing:     cli.NoPing,
		Logger:     logger,
	})
	if err != nil {
		logger.Sugar().Fatal(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(h)

	debugCtx, debugCancel := context.WithCancel(ctx)

	var g errgroup.Group

	// https://github.com/alecthomas/kong/issues/389
	if cli.DebugAddr != "" && cli.DebugAddr != "-" {
		g.Go(func() error {
			debug.RunHandler(debugCtx, cli.DebugAddr, reg, reg, logger.Named("debug"))
			return nil
		})
	}

	cmdCtx, cmdCancel := context.WithTimeout(ctx, cli.Timeout)

	switch command {
	case "ping":
		err = ping(cmdCtx, h, logger)
	case "exec <file>":
		err = execFile(cmdCtx, h, cli.Exec.File, os.Stdout, logger)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}

	cmdCancel()

	// give a chance to abort transactions and disconnect cleanly after the signal
	closeCtx, closeCancel := ctxutil.WithDelay(ctx.Done(), 3*time.Second)

	if closeErr := h.Close(closeCtx); closeErr != nil {
		logger.Warn("Failed to disconnect", zap.Error(closeErr))
	}

	if otelErr := shutdownOtel(closeCtx); otelErr != nil {
		logger.Warn("Failed to shut down OpenTelemetry", zap.Error(otelErr))
	}

	closeCancel()
	debugCancel()
	_ = g.Wait()

	if debugbuild.Enabled {
		dumpMetrics(reg)

		// to increase a chance of resource finalizers to spot problems
		runtime.GC()
		runtime.GC()
	}

	if err != nil {
		logger.Sugar().Fatal(err)
	}
}
