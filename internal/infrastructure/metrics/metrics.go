// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"paydocs/internal/core/apperror"
)

const (
	ErrorTypeDeadlineExceeded = "deadline_exceeded"
	ErrorTypeUser             = "user"
	ErrorTypeIntegrity        = "integrity"
	ErrorTypeConflict         = "conflict"
	ErrorTypeUnknown          = "unknown"
)

// Scheduler holds the expiration job collectors.
type Scheduler struct {
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobTimeouts    *prometheus.CounterVec
	jobErrors      *prometheus.CounterVec
	itemsProcessed *prometheus.CounterVec
	lockSkipped    *prometheus.CounterVec
}

// NewScheduler creates the scheduler collectors and registers them with registerer
// (prometheus.DefaultRegisterer when nil).
func NewScheduler(registerer prometheus.Registerer) *Scheduler {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Scheduler{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paydocs_scheduler_job_runs_total",
			Help: "Expiration job runs by name.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paydocs_scheduler_job_duration_seconds",
			Help:    "Expiration job latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paydocs_scheduler_job_timeouts_total",
			Help: "Expiration job runs cut by their timeout.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paydocs_scheduler_job_errors_total",
			Help: "Expiration job errors by low-cardinality type.",
		}, []string{"job", "error_type"}),
		itemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paydocs_scheduler_items_total",
			Help: "Orders and documents visited by expiration jobs, by outcome.",
		}, []string{"job", "outcome"}),
		lockSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paydocs_scheduler_lock_skipped_total",
			Help: "Job runs skipped because another worker held the lock.",
		}, []string{"job"}),
	}

	registerer.MustRegister(
		m.jobRuns,
		m.jobDuration,
		m.jobTimeouts,
		m.jobErrors,
		m.itemsProcessed,
		m.lockSkipped,
	)
	return m
}

// IncJobRun increments the run counter for a job.
func (m *Scheduler) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// ObserveJobDuration records job latency.
func (m *Scheduler) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// IncJobTimeout increments the timeout counter for a job.
func (m *Scheduler) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError counts err under its classified type.
func (m *Scheduler) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyError(err)).Inc()
}

// AddItems counts n items of job with the given outcome.
func (m *Scheduler) AddItems(job, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsProcessed.WithLabelValues(job, outcome).Add(float64(n))
}

// IncLockSkipped counts a run skipped for lock contention.
func (m *Scheduler) IncLockSkipped(job string) {
	if m == nil {
		return
	}
	m.lockSkipped.WithLabelValues(job).Inc()
}

// ClassifyError maps err to a low-cardinality label.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ErrorTypeUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorTypeDeadlineExceeded
	case apperror.HasCode(err, apperror.CodeIntegrity):
		return ErrorTypeIntegrity
	case apperror.IsConcurrentModification(err):
		return ErrorTypeConflict
	case apperror.IsUserError(err), apperror.IsValidation(err):
		return ErrorTypeUser
	}
	return ErrorTypeUnknown
}

// HTTP holds request collectors.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP creates the request collectors and registers them with registerer.
func NewHTTP(registerer prometheus.Registerer) *HTTP {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paydocs_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paydocs_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	registerer.MustRegister(m.requests, m.duration)
	return m
}

// ObserveRequest records one served request.
func (m *HTTP) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(d.Seconds())
}
