package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	checkRunsTotal      *prometheus.CounterVec
	checkDuration       *prometheus.HistogramVec
	dispatchesTotal     *prometheus.CounterVec
	dedupedTotal        *prometheus.CounterVec
	generationsTotal    *prometheus.CounterVec
	slotCompletionTotal *prometheus.CounterVec
	supportTicketsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the notification engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		checkRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_check_runs_total",
			Help: "Notification check runs by outcome.",
		}, []string{"check", "status"})

		checkDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_check_duration_seconds",
			Help:    "Duration of notification check runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"check"})

		dispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notification dispatch attempts by check, recipient and status.",
		}, []string{"check", "recipient", "status"})

		dedupedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_deduplicated_total",
			Help: "Notifications suppressed because they already fired in the current window.",
		}, []string{"check"})

		generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_generations_total",
			Help: "Schedule generation and import attempts by source and status.",
		}, []string{"source", "status"})

		slotCompletionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slot_completion_changes_total",
			Help: "Completion toggles applied to time slots.",
		}, []string{"action"})

		supportTicketsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_ticket_submissions_total",
			Help: "Support ticket submissions by outcome.",
		}, []string{"status"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			checkRunsTotal,
			checkDuration,
			dispatchesTotal,
			dedupedTotal,
			generationsTotal,
			slotCompletionTotal,
			supportTicketsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// NotificationCheckRuns counts check runs labelled by check and status (ok, error, busy).
func NotificationCheckRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return checkRunsTotal
}

// NotificationCheckDuration observes how long check runs take.
func NotificationCheckDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return checkDuration
}

// NotificationsDispatched counts dispatch attempts.
func NotificationsDispatched() *prometheus.CounterVec {
	RegisterMetrics()
	return dispatchesTotal
}

// NotificationsDeduplicated counts suppressed repeats.
func NotificationsDeduplicated() *prometheus.CounterVec {
	RegisterMetrics()
	return dedupedTotal
}

// ScheduleGenerations counts generation attempts.
func ScheduleGenerations() *prometheus.CounterVec {
	RegisterMetrics()
	return generationsTotal
}

// SlotCompletions counts completion toggles.
func SlotCompletions() *prometheus.CounterVec {
	RegisterMetrics()
	return slotCompletionTotal
}

// SupportTickets counts ticket submissions labelled by outcome (opened, duplicate, error).
func SupportTickets() *prometheus.CounterVec {
	RegisterMetrics()
	return supportTicketsTotal
}
