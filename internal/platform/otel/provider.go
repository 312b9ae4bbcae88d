// Package otel wires OpenTelemetry tracing for the scripts service.
package otel

import (
	"context"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// EnvEndpoint names the OTLP/HTTP collector URL. Tracing is off when empty.
	EnvEndpoint = "HEALING_HOME_OTEL_ENDPOINT"
	// EnvEnabled turns tracing off when set to "false", even with an endpoint.
	EnvEnabled = "HEALING_HOME_OTEL_ENABLED"
	// EnvSampleRatio sets the parent-based trace sampling ratio in [0,1].
	EnvSampleRatio = "HEALING_HOME_OTEL_SAMPLE_RATIO"
)

const instrumentationName = "github.com/louisbranch/healinghome"

// Setup initialises OpenTelemetry tracing for the given service.
//
// When tracing is disabled Setup returns a no-op shutdown function and no
// global provider is registered; spans from Tracer are then non-recording.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if strings.EqualFold(os.Getenv(EnvEnabled), "false") {
		return noop, nil
	}
	endpoint := strings.TrimSpace(os.Getenv(EnvEndpoint))
	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio()))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func sampleRatio() float64 {
	raw := strings.TrimSpace(os.Getenv(EnvSampleRatio))
	if raw == "" {
		return 1
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio < 0 {
		return 1
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}
