package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Observer is told about every refresh cycle. err is nil on success.
type Observer interface {
	ObserveRefresh(elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRefresh(time.Duration, error) {}

type PrometheusObserver struct {
	refreshes *prometheus.CounterVec
	duration  prometheus.Histogram
}

func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(reg)

	return &PrometheusObserver{
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_client_session_refreshes_total",
				Help: "Access token refresh cycles, by outcome.",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "storefront_client_session_refresh_duration_seconds",
				Help:    "Duration of access token refresh calls.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (o *PrometheusObserver) ObserveRefresh(elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	o.refreshes.WithLabelValues(outcome).Inc()
	o.duration.Observe(elapsed.Seconds())
}
