package metrics

import "github.com/prometheus/client_golang/prometheus"

// CloudCallDuration is a histogram of AWS API call latencies, partitioned by
// service, operation and outcome ("ok" or "error").
var CloudCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rws_cloud_call_duration_seconds",
		Help:    "AWS API call duration distribution",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"service", "operation", "outcome"})

// PollAttempts counts status checks made while waiting for a resource to converge.
// Outcome is one of "ready", "pending", "retry" or "failed".
var PollAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rws_poll_attempts_total",
		Help: "Status checks made while waiting for cloud resources.",
	}, []string{"resource", "outcome"})

// Commands counts finished lambda sub-commands by command and result kind.
var Commands = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rws_commands_total",
		Help: "Finished lambda commands.",
	}, []string{"command", "result"})

// CommandDuration is a histogram of end-to-end command durations.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rws_command_duration_seconds",
		Help:    "Lambda command duration distribution",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"command"})

// Register registers all collectors with r.
func Register(r prometheus.Registerer) {
	r.MustRegister(CloudCallDuration)
	r.MustRegister(PollAttempts)
	r.MustRegister(Commands)
	r.MustRegister(CommandDuration)
}
