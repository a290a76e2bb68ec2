// Package metrics exposes Prometheus instrumentation for the turn pipeline:
// turns processed, model calls, action executions and escalations. A Metrics
// value is constructed once per process against a registerer and shared by
// the orchestrator and the action registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the pipeline collectors.
type Metrics struct {
	TurnsProcessed      *prometheus.CounterVec
	TurnDuration        prometheus.Histogram
	ModelCalls          *prometheus.CounterVec
	ModelTokens         *prometheus.CounterVec
	ModelCallDuration   *prometheus.HistogramVec
	ActionExecutions    *prometheus.CounterVec
	ActionDuration      *prometheus.HistogramVec
	ActionCacheHits     prometheus.Counter
	Escalations         *prometheus.CounterVec
	GuardrailBlocks     prometheus.Counter
	WorkflowExecutions  *prometheus.CounterVec
	WorkflowNodeVisits  prometheus.Histogram
}

// NewMetrics registers the pipeline collectors against reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry so
// repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TurnsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpmesh_turns_processed_total",
			Help: "Total number of agent turns processed",
		}, []string{"mode", "status"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpmesh_turn_duration_seconds",
			Help:    "End to end time taken to process one agent turn",
			Buckets: prometheus.DefBuckets,
		}),
		ModelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpmesh_model_calls_total",
			Help: "Total number of LLM completion calls",
		}, []string{"provider", "model", "status"}),
		ModelTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpmesh_model_tokens_total",
			Help: "Total tokens consumed by LLM completion calls",
		}, []string{"provider", "model", "direction"}),
		ModelCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpmesh_model_call_duration_seconds",
			Help:    "Time taken for LLM completion calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActionExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpmesh_action_executions_total",
			Help: "Total number of action executions by outcome",
		}, []string{"action", "status"}),
		ActionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpmesh_action_duration_seconds",
			Help:    "Time taken to execute actions",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		ActionCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpmesh_action_cache_hits_total",
			Help: "Action calls answered from the idempotency cache",
		}),
		Escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpmesh_escalations_total",
			Help: "Total number of conversations escalated to a human",
		}, []string{"method", "priority"}),
		GuardrailBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpmesh_guardrail_blocks_total",
			Help: "Inbound messages blocked by the input guardrail",
		}),
		WorkflowExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpmesh_workflow_executions_total",
			Help: "Total number of workflow graph executions",
		}, []string{"status"}),
		WorkflowNodeVisits: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpmesh_workflow_node_visits",
			Help:    "Node visits per workflow execution",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}
}
