package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// BuildsTotal counts finished builds by result
	BuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildhistory_builds_total",
			Help: "Total number of builds finished",
		},
		[]string{"job", "result"},
	)

	// BuildDuration measures build execution duration in seconds
	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildhistory_build_duration_seconds",
			Help:    "Build execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17m
		},
		[]string{"job", "result"},
	)

	// BuildsRunning tracks the number of currently running builds
	BuildsRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "buildhistory_builds_running",
			Help: "Number of currently running builds",
		},
		[]string{"job", "worker"},
	)

	// BuildsEnqueued counts builds put on the queue
	BuildsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildhistory_builds_enqueued_total",
			Help: "Total number of builds enqueued",
		},
		[]string{"job", "trigger"}, // trigger: manual, schedule, upstream
	)

	// HistoryRequests counts history page computations
	HistoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildhistory_history_requests_total",
			Help: "Total number of history pages computed",
		},
		[]string{"job", "navigation"}, // navigation: latest, newer, older
	)

	// HistoryPageEntries observes how many entries a computed page holds
	HistoryPageEntries = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildhistory_history_page_entries",
			Help:    "Number of entries on a computed history page",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"job"},
	)

	// HistoryCandidates observes how many candidates survived search filtering
	HistoryCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildhistory_history_candidates",
			Help:    "Number of history candidates after search filtering",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"job"},
	)

	// RecordsPurged counts execution records removed by retention
	RecordsPurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildhistory_records_purged_total",
			Help: "Total number of execution records purged by retention",
		},
		[]string{"job"},
	)

	// SchedulerActive indicates whether a cron schedule is registered for a job
	SchedulerActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "buildhistory_scheduler_active",
			Help: "Whether a schedule is active for the job (1=active, 0=inactive)",
		},
		[]string{"job"},
	)

	// QueueDepth measures number of builds in a job queue
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "buildhistory_queue_depth",
			Help: "Number of builds in queue",
		},
		[]string{"queue", "state"}, // state: pending, active, scheduled, retry
	)

	// EventsReceived counts run state change events seen by subscribers
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildhistory_events_received_total",
			Help: "Total number of run state change events received",
		},
		[]string{"job", "run_status"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildhistory_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordBuildStart records the start of a build
func RecordBuildStart(job, worker string) {
	BuildsRunning.WithLabelValues(job, worker).Inc()
}

// RecordBuildComplete records build completion
func RecordBuildComplete(job, worker, result string, duration float64) {
	BuildsRunning.WithLabelValues(job, worker).Dec()
	BuildsTotal.WithLabelValues(job, result).Inc()
	BuildDuration.WithLabelValues(job, result).Observe(duration)
}

// RecordBuildEnqueued records a build being enqueued
func RecordBuildEnqueued(job, trigger string) {
	BuildsEnqueued.WithLabelValues(job, trigger).Inc()
}

// RecordHistoryPage records a computed history page
func RecordHistoryPage(job, navigation string, candidates, entries int) {
	HistoryRequests.WithLabelValues(job, navigation).Inc()
	HistoryCandidates.WithLabelValues(job).Observe(float64(candidates))
	HistoryPageEntries.WithLabelValues(job).Observe(float64(entries))
}

// RecordRecordsPurged records retention purges
func RecordRecordsPurged(job string, count int) {
	RecordsPurged.WithLabelValues(job).Add(float64(count))
}

// RecordQueueDepth sets the depth gauges for a queue
func RecordQueueDepth(queue string, pending, active, scheduled, retry int) {
	QueueDepth.WithLabelValues(queue, "pending").Set(float64(pending))
	QueueDepth.WithLabelValues(queue, "active").Set(float64(active))
	QueueDepth.WithLabelValues(queue, "scheduled").Set(float64(scheduled))
	QueueDepth.WithLabelValues(queue, "retry").Set(float64(retry))
}

// RecordEvent records a received run state change
func RecordEvent(job, runStatus string) {
	EventsReceived.WithLabelValues(job, runStatus).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
