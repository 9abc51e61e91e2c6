package service

import "github.com/prometheus/client_golang/prometheus"

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portico_access_decisions_total",
			Help: "Access decisions by outcome.",
		},
		[]string{"outcome"},
	)

	callLogFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portico_call_log_write_failures_total",
			Help: "Failed post-decision writes by kind (log, counter).",
		},
		[]string{"kind"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portico_sweep_runs_total",
			Help: "Expiration sweep passes by result.",
		},
		[]string{"result"},
	)

	sweepDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portico_sweep_deleted_checkins_total",
		Help: "Check-ins deleted by the expiration sweep.",
	})

	sweepUserErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portico_sweep_user_errors_total",
		Help: "Users whose sweep processing failed.",
	})
)

func init() {
	prometheus.MustRegister(decisionsTotal, callLogFailures, sweepRuns, sweepDeleted, sweepUserErrors)
}
