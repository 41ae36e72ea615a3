package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceConfig configures Tracer. Unlike the teacher's tracer (which
// wires a fixed OTLP/gRPC exporter), Exporter is injectable and
// optional: Copilotz's own go.mod carries no OTLP exporter package, so
// a nil Exporter yields a TracerProvider with no span processor — spans
// are created and context propagates normally, but nothing is
// exported. Callers embedding Copilotz in a process that already has
// an OTLP pipeline can pass their own sdktrace.SpanExporter.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	Exporter       sdktrace.SpanExporter
	SamplingRate   float64
}

// Tracer wraps an OpenTelemetry tracer scoped to Copilotz's runtime
// operations.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a Tracer from cfg. The returned shutdown func must
// be called on process exit; it is a no-op when cfg.Exporter is nil.
func NewTracer(cfg TraceConfig) (*Tracer, func(context.Context) error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "copilotz"
	}
	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 1.0
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		res = resource.Default()
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}
	if cfg.Exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(cfg.Exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	tracer := &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
	}

	return tracer, provider.Shutdown
}

// Start creates a span named name and returns the context carrying it.
func (t *Tracer) Start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithAttributes(attrs...)}
	if kind != trace.SpanKindUnspecified {
		opts = append(opts, trace.WithSpanKind(kind))
	}
	return t.tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks it as failed, if err is
// non-nil.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceProcessor starts a span for one event processor's Process
// call.
func (t *Tracer) TraceProcessor(ctx context.Context, eventType, threadID string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("processor.%s", eventType), trace.SpanKindInternal,
		attribute.String("event.type", eventType),
		attribute.String("thread.id", threadID),
	)
}

// TraceLLMRequest starts a span for one provider request.
func (t *Tracer) TraceLLMRequest(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("llm.%s", provider), trace.SpanKindClient,
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
}

// TraceToolExecution starts a span for one tool execution.
func (t *Tracer) TraceToolExecution(ctx context.Context, toolKey string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("tool.%s", toolKey), trace.SpanKindInternal,
		attribute.String("tool.key", toolKey),
	)
}
