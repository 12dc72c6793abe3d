package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submitted      prometheus.Counter
	Accepted       prometheus.Counter
	Rejected       prometheus.Counter
	DecideDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orgportal_registration_submitted_total",
			Help: "Total number of registration requests submitted",
		}),
		Accepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orgportal_registration_accepted_total",
			Help: "Total number of registration requests accepted",
		}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "orgportal_registration_rejected_total",
			Help: "Total number of registration requests rejected",
		}),
		DecideDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "orgportal_registration_decide_duration_seconds",
			Help:    "Duration of registration decisions (includes cascading account creation)",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	m.Submitted.Inc()
}

func (m *Metrics) IncrementDecided(accepted bool) {
	if accepted {
		m.Accepted.Inc()
	} else {
		m.Rejected.Inc()
	}
}

func (m *Metrics) ObserveDecide(start time.Time) {
	m.DecideDuration.Observe(time.Since(start).Seconds())
}
