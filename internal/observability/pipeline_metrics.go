package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_turns_total",
			Help: "Total number of conversation turns by classification label.",
		},
		[]string{"label"},
	)
	turnFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_turn_failures_total",
			Help: "Total number of degraded turns by failure kind.",
		},
		[]string{"kind"},
	)
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_model_calls_total",
			Help: "Total number of language model invocations by task and status.",
		},
		[]string{"task", "status"},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analyzer_model_call_duration_seconds",
			Help:    "Language model invocation latency by task.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"task"},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_query_executions_total",
			Help: "Total number of generated SQL executions by status.",
		},
		[]string{"status"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analyzer_query_duration_seconds",
			Help:    "Generated SQL execution latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	plotChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_plot_checks_total",
			Help: "Total number of plot code sanitizer verdicts.",
		},
		[]string{"verdict"},
	)
	plotRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_plot_renders_total",
			Help: "Total number of chart renders by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		turnFailuresTotal,
		modelCallsTotal,
		modelCallDurationSeconds,
		queryExecutionsTotal,
		queryDurationSeconds,
		plotChecksTotal,
		plotRendersTotal,
	)
}

func ObserveTurn(label, failureKind string) {
	turnsTotal.WithLabelValues(label).Inc()
	if failureKind != "" {
		turnFailuresTotal.WithLabelValues(failureKind).Inc()
	}
}

func ObserveModelCall(task string, err error, elapsed time.Duration) {
	modelCallsTotal.WithLabelValues(task, statusLabel(err)).Inc()
	modelCallDurationSeconds.WithLabelValues(task).Observe(elapsed.Seconds())
}

func ObserveQueryExecution(err error, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(statusLabel(err)).Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
}

func ObservePlotCheck(safe bool) {
	if safe {
		plotChecksTotal.WithLabelValues("safe").Inc()
		return
	}
	plotChecksTotal.WithLabelValues("unsafe").Inc()
}

func ObservePlotRender(err error) {
	plotRendersTotal.WithLabelValues(statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
