package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AgentOutcomes は予約エージェントの判定結果ごとの件数です
	AgentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_agent_outcomes_total",
			Help: "Total number of reservation agent decisions by entry point and outcome",
		},
		[]string{"operation", "outcome"},
	)

	ComposeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rendezvous_compose_duration_seconds",
			Help:    "Duration of recommendation composition in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rendezvous_api_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	BatchRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_batch_records_total",
			Help: "Total number of records processed by batch jobs",
		},
		[]string{"batch"},
	)
)

// RecordAgentOutcome は予約エージェントの判定結果を記録します
func RecordAgentOutcome(operation, outcome string) {
	AgentOutcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordCompose records a completed recommendation call.
func RecordCompose(duration time.Duration) {
	ComposeDuration.Observe(duration.Seconds())
}

// RecordAPIRequest はHTTPリクエストの処理時間を記録します
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func RecordBatchRecords(batch string, n int) {
	BatchRecords.WithLabelValues(batch).Add(float64(n))
}
