// Package metrics exposes Prometheus counters for run observability. The
// collectors register on the default registry and are served by the service
// package when metrics are enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsNamespace = "flaky"

var (
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "generations_total",
		Help:      "Count of completed generations",
	}, []string{
		"case_name",
		"result",
	})

	generationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "generation_failures_total",
		Help:      "Count of generations that failed to execute and were dropped",
	}, []string{
		"case_name",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of individual test executions",
	}, []string{
		"case_name",
		"result",
	})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "generation_duration_seconds",
		Help:      "Wall-clock duration of completed generations",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{
		"case_name",
	})
)

// RecordGeneration records a completed generation and its tests.
func RecordGeneration(caseName string, passed, failed int, durationSeconds float64) {
	result := "pass"
	if failed > 0 {
		result = "fail"
	}
	generationsTotal.WithLabelValues(caseName, result).Inc()
	generationDuration.WithLabelValues(caseName).Observe(durationSeconds)
	testsTotal.WithLabelValues(caseName, "pass").Add(float64(passed))
	testsTotal.WithLabelValues(caseName, "fail").Add(float64(failed))
}

// RecordGenerationFailure records a generation dropped before producing
// results.
func RecordGenerationFailure(caseName string) {
	generationFailuresTotal.WithLabelValues(caseName).Inc()
}
