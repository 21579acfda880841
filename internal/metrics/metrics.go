// Package metrics exposes refresh-tick and HTTP metrics to Prometheus and,
// optionally, to CloudWatch.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hubwatch"

// Hub outcomes reported per tick.
const (
	OutcomeOK            = "ok"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomePersistFailed = "persist_failed"
)

// TickSummary is what one refresh tick reports to its recorders.
type TickSummary struct {
	Duration         time.Duration
	HubOutcomes      map[string]string // hub code -> outcome
	ActualsRecorded  int
	SnapshotsChanged int
	GroundChanged    bool
	Notified         bool
}

// Failures returns the number of hubs whose refresh did not complete.
func (s TickSummary) Failures() int {
	n := 0
	for _, o := range s.HubOutcomes {
		if o != OutcomeOK {
			n++
		}
	}
	return n
}

// TickRecorder receives one summary per refresh tick.
type TickRecorder interface {
	RecordTick(ctx context.Context, s TickSummary)
}

// Recorders fans a summary out to several recorders.
type Recorders []TickRecorder

// RecordTick implements TickRecorder.
func (rs Recorders) RecordTick(ctx context.Context, s TickSummary) {
	for _, r := range rs {
		if r != nil {
			r.RecordTick(ctx, s)
		}
	}
}

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	TicksTotal       prometheus.Counter
	TickDuration     prometheus.Histogram
	HubRefreshes     *prometheus.CounterVec // labels: hub, outcome
	ActualsRecorded  prometheus.Counter
	SnapshotsChanged prometheus.Counter
	Notifications    prometheus.Counter
	TicksSkipped     prometheus.Counter

	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: route
}

// New creates the collectors and registers them with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_ticks_total",
			Help:      "Refresh ticks completed.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_tick_duration_seconds",
			Help:      "Wall time of a refresh tick across all hubs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		HubRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_refreshes_total",
			Help:      "Per-hub refresh results.",
		}, []string{"hub", "outcome"}),
		ActualsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hourly_actuals_recorded_total",
			Help:      "Hourly actuals written for the first time.",
		}),
		SnapshotsChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_changed_total",
			Help:      "Snapshot upserts that changed stored content.",
		}),
		Notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_notifications_total",
			Help:      "DashboardChanged notifications emitted.",
		}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_ticks_skipped_total",
			Help:      "Ticks not started because an earlier tick was stuck.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickDuration,
		m.HubRefreshes,
		m.ActualsRecorded,
		m.SnapshotsChanged,
		m.Notifications,
		m.TicksSkipped,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// RecordTick implements TickRecorder.
func (m *Metrics) RecordTick(_ context.Context, s TickSummary) {
	m.TicksTotal.Inc()
	m.TickDuration.Observe(s.Duration.Seconds())
	for hub, outcome := range s.HubOutcomes {
		m.HubRefreshes.WithLabelValues(hub, outcome).Inc()
	}
	m.ActualsRecorded.Add(float64(s.ActualsRecorded))
	m.SnapshotsChanged.Add(float64(s.SnapshotsChanged))
	if s.Notified {
		m.Notifications.Inc()
	}
}

// RecordSkippedTick counts a tick refused by the overlap guard.
func (m *Metrics) RecordSkippedTick() {
	m.TicksSkipped.Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
