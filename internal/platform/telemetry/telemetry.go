// Package telemetry installs the OpenTelemetry tracer provider.
//
// Tracing is off by default; the engine's spans then go to a no-op provider.
// With GATEKEEPER_OTEL_ENABLED=true spans are pretty-printed to stdout.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "gatekeeper"

// Init installs the global tracer provider and returns its shutdown func.
// When enabled is false a no-op provider is installed.
func Init(ctx context.Context, enabled bool, serviceName string, out io.Writer) (func(context.Context) error, error) {
	if !enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if out != nil {
		opts = append(opts, stdouttrace.WithWriter(out))
	}
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}
