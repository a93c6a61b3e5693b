// Package apm configures OpenTelemetry tracing exporters.
package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/flashloan-arb/internal/logger"
)

type Provider string

const (
	NewRelicProvider  Provider = "newrelic"
	ZipkinProvider    Provider = "zipkin"
	HoneycombProvider Provider = "honeycomb"
	ConsoleProvider   Provider = "console"
	EmptyProvider     Provider = "empty"
)

// TraceProvider flushes and stops tracing.
type TraceProvider interface {
	Stop() error
}

// Config selects and parameterises the exporter.
type Config struct {
	Provider    Provider
	ServiceName string
	Endpoint    string
	// Headers is "key=value", as in OTEL_EXPORTER_OTLP_HEADERS.
	Headers string
	// Protocol is "grpc" or "http/protobuf".
	Protocol string
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

// NewTraceProvider installs a global tracer provider for cfg. Unknown
// providers fall back to the empty provider with a warning.
func NewTraceProvider(ctx context.Context, log logger.LoggerInterface, cfg Config) (TraceProvider, error) {
	exp, err := newExporter(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return emptyTraceProvider{}, nil
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("otel.provider", string(cfg.Provider)),
		))
	if err != nil {
		// Schema URL conflicts between the default resource and ours are not fatal.
		rsrc = resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{tp}, nil
}

func newExporter(ctx context.Context, log logger.LoggerInterface, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Provider {
	case ZipkinProvider:
		return zipkin.New(cfg.Endpoint)

	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())

	case NewRelicProvider:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithHeaders(map[string]string{"api-key": cfg.Headers}),
		)

	case HoneycombProvider:
		key, value, ok := strings.Cut(cfg.Headers, "=")
		if !ok {
			return nil, fmt.Errorf("apm: honeycomb headers must be key=value")
		}
		headers := map[string]string{key: value}

		if cfg.Protocol == "http/protobuf" {
			log.Info(ctx, "initializing honeycomb exporter", "protocol", "http", "endpoint", cfg.Endpoint)
			return otlptracehttp.New(ctx,
				otlptracehttp.WithEndpointURL(cfg.Endpoint),
				otlptracehttp.WithHeaders(headers),
			)
		}
		log.Info(ctx, "initializing honeycomb exporter", "protocol", "grpc", "endpoint", cfg.Endpoint)
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(cfg.Endpoint),
			otlptracegrpc.WithHeaders(headers),
		)

	case EmptyProvider:
		return nil, nil

	default:
		log.Warn(ctx, "trace provider not found, using empty provider", "provider", cfg.Provider)
		return nil, nil
	}
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return o.tp.Shutdown(ctx)
}
