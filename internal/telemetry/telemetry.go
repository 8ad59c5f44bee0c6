// Package telemetry configures the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/stdr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const ServiceName = "agent-kickoff"

type ShutdownFunc func(context.Context) error

// Setup installs an OTLP/gRPC tracer provider as the global provider. The
// exporter reads the standard OTEL_EXPORTER_OTLP_* variables. When enabled
// is false it only routes the otel internal logger and returns a no-op
// shutdown.
func Setup(ctx context.Context, enabled bool, version string) (ShutdownFunc, error) {
	otel.SetLogger(stdr.New(log.New(os.Stderr, "otel: ", log.LstdFlags)))
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}
	tp := NewTracerProvider(sdktrace.WithBatcher(exporter), version)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// NewTracerProvider builds a tracer provider tagged with the service
// resource around the given span processor option.
func NewTracerProvider(processor sdktrace.TracerProviderOption, version string) *sdktrace.TracerProvider {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	)
	return sdktrace.NewTracerProvider(processor, sdktrace.WithResource(res))
}
