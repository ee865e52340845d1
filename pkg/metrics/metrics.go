// Package metrics exposes Prometheus instrumentation for the processing
// pipeline: agent execution, provider calls, cache behavior, and vector
// ingestion. Collectors register against the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meeting_insights"

var (
	// AgentRuns counts agent executions by agent name and outcome status.
	AgentRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agents",
		Name:      "runs_total",
		Help:      "Agent executions by agent and result status",
	}, []string{"agent", "status"})

	// AgentLatency observes per-agent wall-clock latency in seconds.
	AgentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "agents",
		Name:      "latency_seconds",
		Help:      "Agent execution latency",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"agent"})

	// ProviderCalls counts outbound LLM provider requests by provider and outcome.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "provider_calls_total",
		Help:      "Outbound provider requests by provider and outcome",
	}, []string{"provider", "outcome"})

	// CacheHits counts LLM response cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "cache_hits_total",
		Help:      "LLM response cache hits",
	})

	// CacheMisses counts LLM response cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "cache_misses_total",
		Help:      "LLM response cache misses",
	})

	// VectorsIngested counts vector records added to the index by segment type.
	VectorsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "vector",
		Name:      "ingested_total",
		Help:      "Vector records ingested by segment type",
	}, []string{"segment_type"})

	// SearchQueries counts retrieval queries served.
	SearchQueries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "vector",
		Name:      "search_queries_total",
		Help:      "Similarity search queries served",
	})
)
