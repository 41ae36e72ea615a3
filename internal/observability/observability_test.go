package observability

import (
	"context"
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetrics_SetQueueDepthRecordsGaugeValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetQueueDepth("pending", 3)

	metric := &dto.Metric{}
	require.NoError(t, m.QueueDepth.WithLabelValues("pending").Write(metric))
	assert.Equal(t, float64(3), metric.GetGauge().GetValue())
}

func TestMetrics_RecordProcessorCountsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordProcessor("LLM_CALL", 0.2, nil)
	m.RecordProcessor("LLM_CALL", 0.1, errors.New("boom"))

	successMetric := &dto.Metric{}
	require.NoError(t, m.ProcessorOutcome.WithLabelValues("LLM_CALL", "success").Write(successMetric))
	assert.Equal(t, float64(1), successMetric.GetCounter().GetValue())

	errorMetric := &dto.Metric{}
	require.NoError(t, m.ProcessorOutcome.WithLabelValues("LLM_CALL", "error").Write(errorMetric))
	assert.Equal(t, float64(1), errorMetric.GetCounter().GetValue())
}

func TestMetrics_RecordLLMRequestAddsTokenCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordLLMRequest("anthropic", "claude-3-opus", 1.5, 100, 50)

	promptMetric := &dto.Metric{}
	require.NoError(t, m.LLMTokensTotal.WithLabelValues("anthropic", "claude-3-opus", "prompt").Write(promptMetric))
	assert.Equal(t, float64(100), promptMetric.GetCounter().GetValue())
}

func TestTracer_NilExporterStillProducesValidSpans(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "copilotz-test"})
	defer func() { _ = shutdown(context.Background()) }()

	ctx, span := tracer.TraceProcessor(context.Background(), "LLM_CALL", "thread-1")
	require.NotNil(t, span)
	assert.True(t, span.SpanContext().IsValid())

	tracer.RecordError(span, errors.New("failed"))
	span.End()

	_, toolSpan := tracer.TraceToolExecution(ctx, "get_current_time")
	assert.True(t, toolSpan.SpanContext().IsValid())
	toolSpan.End()
}
