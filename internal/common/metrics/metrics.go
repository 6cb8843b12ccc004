// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_searches_total",
			Help: "Total number of general searches processed",
		},
		[]string{"path"}, // "model" or "fallback"
	)

	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Total number of agent conversation turns by outcome",
		},
		[]string{"outcome"},
	)

	ModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_model_calls_total",
			Help: "Total number of language model calls by status",
		},
		[]string{"status"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_model_call_duration_seconds",
			Help: "Duration of language model calls in seconds",
		},
		[]string{"status"},
	)

	ModerationVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_moderation_verdicts_total",
			Help: "Moderation gate decisions by action",
		},
		[]string{"action"},
	)

	QuotaDenials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_quota_denials_total",
			Help: "Turns denied by the quota gate",
		},
	)
)
