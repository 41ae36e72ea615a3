// Package observability wires Copilotz's queue/processor/provider
// activity into Prometheus metrics and OpenTelemetry spans, grounded
// on the teacher's internal/observability package. Scope is limited
// to what SPEC_FULL.md names: queue depth by status, processor
// latency, token throughput, and span instrumentation around
// processor Process calls and provider requests — the teacher's
// HTTP/webhook/session metrics have no Copilotz component to attach
// to and were not carried over.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the set of Prometheus collectors Copilotz's runtime
// reports against. Construct once per process with NewMetrics and
// share the instance across workers.
type Metrics struct {
	// QueueDepth tracks the number of queue events currently in each
	// status. Labels: status (pending|processing|completed|failed|expired|overwritten).
	QueueDepth *prometheus.GaugeVec

	// ProcessorDuration measures how long one processor's Process call
	// takes. Labels: event_type (NEW_MESSAGE|LLM_CALL|TOOL_CALL).
	ProcessorDuration *prometheus.HistogramVec

	// ProcessorOutcome counts processor runs by outcome. Labels:
	// event_type, outcome (success|error).
	ProcessorOutcome *prometheus.CounterVec

	// LLMRequestDuration measures provider request latency. Labels:
	// provider, model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensTotal counts tokens streamed back by provider requests.
	// Labels: provider, model, kind (prompt|completion).
	LLMTokensTotal *prometheus.CounterVec

	// ToolExecutionDuration measures tool executor latency. Labels:
	// tool_key.
	ToolExecutionDuration *prometheus.HistogramVec

	// ToolExecutionOutcome counts tool executions by outcome. Labels:
	// tool_key, outcome (success|error).
	ToolExecutionOutcome *prometheus.CounterVec
}

// NewMetrics registers and returns the full collector set against reg.
// Pass prometheus.NewRegistry() for an isolated registry (tests), or
// prometheus.DefaultRegisterer to expose on the process-wide /metrics
// endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "copilotz_queue_depth",
				Help: "Current number of queue events by status",
			},
			[]string{"status"},
		),

		ProcessorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilotz_processor_duration_seconds",
				Help:    "Duration of one event processor's Process call",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"event_type"},
		),

		ProcessorOutcome: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilotz_processor_runs_total",
				Help: "Total processor runs by event type and outcome",
			},
			[]string{"event_type", "outcome"},
		),

		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilotz_llm_request_duration_seconds",
				Help:    "Duration of LLM provider requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilotz_llm_tokens_total",
				Help: "Total tokens exchanged with LLM providers",
			},
			[]string{"provider", "model", "kind"},
		),

		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilotz_tool_execution_duration_seconds",
				Help:    "Duration of tool executions",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_key"},
		),

		ToolExecutionOutcome: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilotz_tool_executions_total",
				Help: "Total tool executions by tool key and outcome",
			},
			[]string{"tool_key", "outcome"},
		),
	}
}

// SetQueueDepth sets the current gauge value for one status.
func (m *Metrics) SetQueueDepth(status string, depth int) {
	m.QueueDepth.WithLabelValues(status).Set(float64(depth))
}

// RecordProcessor records one processor run's latency and outcome.
func (m *Metrics) RecordProcessor(eventType string, durationSeconds float64, err error) {
	m.ProcessorDuration.WithLabelValues(eventType).Observe(durationSeconds)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ProcessorOutcome.WithLabelValues(eventType, outcome).Inc()
}

// RecordLLMRequest records one provider request's latency and token
// counts.
func (m *Metrics) RecordLLMRequest(provider, model string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records one tool executor run's latency and
// outcome.
func (m *Metrics) RecordToolExecution(toolKey string, durationSeconds float64, err error) {
	m.ToolExecutionDuration.WithLabelValues(toolKey).Observe(durationSeconds)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.ToolExecutionOutcome.WithLabelValues(toolKey, outcome).Inc()
}
