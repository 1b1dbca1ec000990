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

// Package observability provides tracing setup and the tracer used by mongohelper packages.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelsdkresource "go.opentelemetry.io/otel/sdk/resource"
	otelsdktrace "go.opentelemetry.io/otel/sdk/trace"
	otelsemconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of mongohelper spans.
const tracerName = "github.com/FerretDB/mongohelper"

// Tracer returns the tracer of the global tracer provider.
//
// It is safe to call it before [SetupOtel]; spans are then recorded by the provider set later.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// ShutdownFunc is a function that shuts down the OpenTelemetry observability system.
type ShutdownFunc func(context.Context) error

// SetupOtel sets up OTLP exporter and tracer provider.
//
// If endpoint is empty, no exporter is set up, and returned function does nothing.
func SetupOtel(ctx context.Context, service, version, endpoint string) (ShutdownFunc, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := otelsdktrace.NewTracerProvider(
		otelsdktrace.WithBatcher(exporter, otelsdktrace.WithBatchTimeout(time.Second)),
		otelsdktrace.WithSampler(otelsdktrace.AlwaysSample()),
		otelsdktrace.WithResource(otelsdkresource.NewSchemaless(
			otelsemconv.ServiceNameKey.String(service),
			otelsemconv.ServiceVersionKey.String(version),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
