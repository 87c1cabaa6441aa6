package metrics

import (
	"time"

	"bloodlink/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the matching pipeline. New
// registers against the default registry, so create it once per process.
type Metrics struct {
	MatchRuns       *prometheus.CounterVec
	MatchedDonors   prometheus.Histogram
	MatchDuration   prometheus.Histogram
	Notifications   *prometheus.CounterVec
	RequestsCreated prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		MatchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_match_runs_total",
			Help: "Total number of matching runs, labeled by result",
		}, []string{"result"}),
		MatchedDonors: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_matched_donors",
			Help:    "Number of donors matched per request",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
		MatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_match_duration_seconds",
			Help:    "Duration of a full match and notify run in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_notifications_total",
			Help: "Notification attempts, labeled by channel and result",
		}, []string{"channel", "result"}),
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_requests_created_total",
			Help: "Total number of blood requests published",
		}),
	}
}

func (m *Metrics) ObserveMatchRun(result string, matched int, took time.Duration) {
	m.MatchRuns.WithLabelValues(result).Inc()
	m.MatchedDonors.Observe(float64(matched))
	m.MatchDuration.Observe(took.Seconds())
}

func (m *Metrics) ObserveOutcomes(outcomes []types.NotificationOutcome) {
	for _, o := range outcomes {
		result := "sent"
		if !o.Success {
			result = "failed"
			if o.Unavailable() {
				result = "unavailable"
			}
		}
		m.Notifications.WithLabelValues(string(o.Channel), result).Inc()
	}
}
