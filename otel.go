package schwab

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tradekit/schwab"

// otelInstrumentation holds OpenTelemetry instrumentation for the client.
type otelInstrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled  bool
	requestDuration metric.Float64Histogram
	requestCount    metric.Int64Counter
	requestErrors   metric.Int64Counter
	resolverLoads   metric.Int64Counter
}

// newOtelInstrumentation creates new OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	o.requestDuration, err = meter.Float64Histogram(
		"schwab.request.duration",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.requestCount, err = meter.Int64Counter(
		"schwab.request.count",
		metric.WithDescription("Number of API requests"),
	)
	if err != nil {
		return err
	}

	o.requestErrors, err = meter.Int64Counter(
		"schwab.request.errors",
		metric.WithDescription("Number of failed API requests"),
	)
	if err != nil {
		return err
	}

	o.resolverLoads, err = meter.Int64Counter(
		"schwab.resolver.loads",
		metric.WithDescription("Number of account-number mapping loads"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan begins a client span for an API request. Returns the input
// context and a nil span when tracing is disabled; endSpan tolerates
// both.
func (o *otelInstrumentation) startSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	if !o.tracingEnabled {
		return ctx, nil
	}
	return o.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
}

// endSpan closes a request span with the response status.
func (o *otelInstrumentation) endSpan(span trace.Span, statusCode int, err error) {
	if span == nil {
		return
	}
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}

// recordRequest records request metrics.
func (o *otelInstrumentation) recordRequest(ctx context.Context, method string, statusCode int, duration time.Duration, err error) {
	if !o.metricsEnabled {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.Int("http.response.status_code", statusCode),
	)
	o.requestCount.Add(ctx, 1, attrs)
	o.requestDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		o.requestErrors.Add(ctx, 1, attrs)
	}
}

// recordResolverLoad counts a fetch of the account-number mapping.
func (o *otelInstrumentation) recordResolverLoad(ctx context.Context) {
	if !o.metricsEnabled {
		return
	}
	o.resolverLoads.Add(ctx, 1)
}
