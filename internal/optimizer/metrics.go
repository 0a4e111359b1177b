package optimizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for optimizationsTotal.
const (
	OutcomeAccepted      = "accepted"
	OutcomeNoImprovement = "no_improvement"
	OutcomeFallback      = "fallback"
	OutcomeError         = "error"
)

var (
	optimizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qzx_optimizations_total",
		Help: "Circuits optimized, by outcome",
	}, []string{"outcome"})

	ruleApplicationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qzx_rule_applications_total",
		Help: "Rewrite rule applications, by rule family",
	}, []string{"rule"})

	optimizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qzx_optimize_duration_seconds",
		Help:    "Wall time of one Optimize call",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	nodeReductionRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qzx_node_reduction_ratio",
		Help:    "Interior nodes after simplification divided by nodes before",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})
)
