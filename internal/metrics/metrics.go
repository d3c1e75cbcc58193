// Package metrics defines the Prometheus instruments for the report
// pipeline. All collectors register on the default registry and are served
// at /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatTurns counts processed chat turns by outcome (ok, degraded, error).
	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enercomp",
		Subsystem: "chat",
		Name:      "turns_total",
		Help:      "Chat turns processed, labeled by outcome.",
	}, []string{"outcome"})

	// TurnDuration observes end-to-end chat turn latency.
	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "enercomp",
		Subsystem: "chat",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end chat turn duration.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// LLMCalls counts model invocations by agent.
	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enercomp",
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "LLM invocations, labeled by agent.",
	}, []string{"agent"})

	// LLMFailures counts failed model invocations by agent.
	LLMFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enercomp",
		Subsystem: "llm",
		Name:      "failures_total",
		Help:      "Failed LLM invocations, labeled by agent.",
	}, []string{"agent"})

	// ChunksAnalyzed counts CSV chunks summarized by the analyst stage.
	ChunksAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "enercomp",
		Subsystem: "analysis",
		Name:      "chunks_total",
		Help:      "CSV chunks summarized by the data-analyst stage.",
	})
)
