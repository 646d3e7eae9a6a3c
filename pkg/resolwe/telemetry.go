package resolwe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "resolwe-go/sdk/pkg/resolwe"

type (
	// TracerProvider is the OpenTelemetry tracer provider used for client spans.
	TracerProvider = trace.TracerProvider
	// MeterProvider is the OpenTelemetry meter provider used for client metrics.
	MeterProvider = metric.MeterProvider
)

type telemetry struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newTelemetry(tp TracerProvider, mp MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	// Instrument creation only fails on invalid names; a nil instrument is
	// replaced by a no-op below.
	requests, _ := meter.Int64Counter("resolwe.client.requests",
		metric.WithDescription("Requests sent to the Resolwe API"))
	duration, _ := meter.Float64Histogram("resolwe.client.duration",
		metric.WithDescription("Resolwe API request latency"),
		metric.WithUnit("s"))

	return &telemetry{
		tracer:   tp.Tracer(instrumentationName),
		requests: requests,
		duration: duration,
	}
}

func (t *telemetry) start(ctx context.Context, method, endpoint string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "resolwe "+method+" "+endpointFamily(endpoint),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", apiPrefix+endpoint),
		))
}

func (t *telemetry) finish(ctx context.Context, span trace.Span, method, endpoint string, status int, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("resolwe.endpoint", endpointFamily(endpoint)),
		attribute.String("outcome", outcome),
	)
	if t.requests != nil {
		t.requests.Add(ctx, 1, attrs)
	}
	if t.duration != nil {
		t.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// endpointFamily drops the id segment so metric cardinality stays bounded.
func endpointFamily(endpoint string) string {
	for i := 0; i < len(endpoint); i++ {
		if endpoint[i] == '/' {
			return endpoint[:i]
		}
	}
	return endpoint
}
