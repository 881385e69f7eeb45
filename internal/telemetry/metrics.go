package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/courtsync/pkg/differ"
	courtsync "github.com/agentstation/courtsync/pkg/sync"
)

// Metrics holds the Prometheus collectors for reconciliation.
type Metrics struct {
	Events        *prometheus.CounterVec
	SyncDuration  *prometheus.HistogramVec
	CourtOutcomes *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "courtsync_events_total",
			Help: "Reconciliation events by name",
		}, []string{"event"}),
		SyncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courtsync_sync_duration_seconds",
			Help:    "Duration of sync passes by trigger",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"trigger"}),
		CourtOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "courtsync_court_outcomes_total",
			Help: "Reported court outcomes by update type",
		}, []string{"update_type"}),
	}
}

// ObserveSync records a finished pass. stats may be nil when the pass failed.
func (m *Metrics) ObserveSync(trigger string, duration time.Duration, stats *courtsync.Statistics) {
	if m == nil {
		return
	}
	m.SyncDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	if stats == nil {
		return
	}
	for _, class := range []differ.Class{differ.ClassInsert, differ.ClassUpdate, differ.ClassError} {
		if n := stats.Count(class); n > 0 {
			m.CourtOutcomes.WithLabelValues(string(class)).Add(float64(n))
		}
	}
}
