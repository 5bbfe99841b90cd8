package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the engine
type Metrics struct {
	// Scheduler metrics
	JobRuns     *prometheus.CounterVec
	JobSkipped  *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	// Wheel metrics
	Spins *prometheus.CounterVec

	// Automation metrics
	ChannelsDeactivated *prometheus.CounterVec
	MembershipChecks    *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	GetDefaultMetrics()
}

// NewMetrics creates and registers all collectors. Call it once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		JobRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rota_job_runs_total",
				Help: "Total number of scheduled job runs by outcome",
			},
			[]string{"job", "result"},
		),
		JobSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rota_job_skipped_total",
				Help: "Triggers dropped because the job was still running",
			},
			[]string{"job"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rota_job_duration_seconds",
				Help:    "Duration of scheduled job runs in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"job"},
		),
		Spins: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rota_spins_total",
				Help: "Total number of wheel spins by variant and prize",
			},
			[]string{"variant", "prize"},
		),
		ChannelsDeactivated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rota_channels_deactivated_total",
				Help: "Channels deactivated by reason",
			},
			[]string{"reason"},
		),
		MembershipChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rota_membership_checks_total",
				Help: "Membership lookups by outcome",
			},
			[]string{"result"},
		),
		Notifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rota_admin_notifications_total",
				Help: "Admin notifications by delivery result",
			},
			[]string{"result"},
		),
	}
}

// RecordJobRun records a finished job run
func (m *Metrics) RecordJobRun(job string, duration float64, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.JobRuns.WithLabelValues(job, result).Inc()
	m.JobDuration.WithLabelValues(job).Observe(duration)
}

// RecordJobSkipped records a trigger dropped because the job was in flight
func (m *Metrics) RecordJobSkipped(job string) {
	m.JobSkipped.WithLabelValues(job).Inc()
}

// RecordSpin records a production spin
func (m *Metrics) RecordSpin(variant, prize string) {
	m.Spins.WithLabelValues(variant, prize).Inc()
}

// RecordDeactivation records a channel deactivation
func (m *Metrics) RecordDeactivation(reason string) {
	m.ChannelsDeactivated.WithLabelValues(reason).Inc()
}

// RecordMembershipCheck records a membership lookup outcome
func (m *Metrics) RecordMembershipCheck(result string) {
	if result == "" {
		result = "unknown"
	}
	m.MembershipChecks.WithLabelValues(result).Inc()
}

// RecordNotification records one admin notification delivery attempt
func (m *Metrics) RecordNotification(err error) {
	if err != nil {
		m.Notifications.WithLabelValues("failure").Inc()
		return
	}
	m.Notifications.WithLabelValues("success").Inc()
}
