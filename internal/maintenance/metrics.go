package maintenance

import "github.com/prometheus/client_golang/prometheus"

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_session_sweep_runs_total",
			Help: "Total number of session sweep runs by status.",
		},
		[]string{"status"},
	)
	sessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analyzer_sessions_expired_total",
			Help: "Total number of idle sessions removed by the sweeper.",
		},
	)
	chartsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analyzer_chart_artifacts_deleted_total",
			Help: "Total number of chart artifacts deleted with expired sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		sweepRunsTotal,
		sessionsExpiredTotal,
		chartsDeletedTotal,
	)
}
