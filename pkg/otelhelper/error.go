package otelhelper

import (
	"github.com/dukex/flightline/pkg/opserr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError records err on span. Operations rejected with a known code are marked with an
// operation_rejected event and keep an unset status; anything else marks the span as failed.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)

	if code := opserr.CodeOf(err); code != "" && opserr.KindOf(code) != opserr.KindUncertain {
		span.AddEvent("operation_rejected", trace.WithAttributes(attrs...))

		return
	}

	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}
