// Package otelhelper provides distributed tracing helpers for flying operations.
package otelhelper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	AircraftIDKey = "flightline.aircraft.id"
	CycleKey      = "flightline.workflow.cycle"
	StageKey      = "flightline.workflow.stage"
	OperationKey  = "flightline.operation"
	RecordIDKey   = "flightline.record.id"
	RecordKindKey = "flightline.record.kind"
	SlotKey       = "flightline.signature.slot"
	PNOKey        = "flightline.personnel.pno"
	ErrorCodeKey  = "flightline.error.code"
	JobCardIDKey  = "flightline.job_card.id"
	EventIDKey    = "flightline.event.id"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// TracerConfig selects the exported service identity and sampling.
// SampleRatio outside (0, 1) samples everything.
type TracerConfig struct {
	ServiceName string
	Version     string
	SampleRatio float64
}

// NewTracer installs an OTLP/HTTP exporting provider as the global one. The exporter endpoint
// comes from the standard OTEL_EXPORTER_OTLP_* variables.
// nolint:ireturn
func NewTracer(ctx context.Context, cfg TracerConfig) (trace.Tracer, ShutdownFunc, error) {
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return provider.Tracer(cfg.ServiceName), provider.Shutdown, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}

	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// DefaultTracer returns a tracer from the global provider, a no-op until NewTracer runs.
// nolint:ireturn
func DefaultTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// nolint:ireturn,spancheck
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
