package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// conversion service.
type Metrics struct {
	ConversionsTotal prometheus.Counter
	ConversionErrors *prometheus.CounterVec // label: kind={io,schema,alignment,write,internal}
	RecordsEmitted   prometheus.Counter
	RecordsSkipped   prometheus.Counter

	ConversionDuration prometheus.Histogram
	LastSuccessTime    prometheus.Gauge

	// Kafka notification metrics.
	NotificationsSent  prometheus.Counter
	NotificationErrors prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ConversionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dscovr_mag",
			Name:      "conversions_total",
			Help:      "Total successful NetCDF to JSON conversions.",
		}),
		ConversionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dscovr_mag",
			Name:      "conversion_errors_total",
			Help:      "Total failed conversions by error kind.",
		}, []string{"kind"}),
		RecordsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dscovr_mag",
			Name:      "records_emitted_total",
			Help:      "Total measurement records written to output documents.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dscovr_mag",
			Name:      "records_skipped_total",
			Help:      "Total observations dropped because their time was missing.",
		}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dscovr_mag",
			Name:      "conversion_duration_seconds",
			Help:      "Duration of a complete open-read-assemble-write cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dscovr_mag",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful conversion.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dscovr_mag",
			Name:      "notifications_sent_total",
			Help:      "Total completion events published to Kafka.",
		}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dscovr_mag",
			Name:      "notification_errors_total",
			Help:      "Total failed Kafka completion publishes.",
		}),
	}

	prometheus.MustRegister(
		m.ConversionsTotal,
		m.ConversionErrors,
		m.RecordsEmitted,
		m.RecordsSkipped,
		m.ConversionDuration,
		m.LastSuccessTime,
		m.NotificationsSent,
		m.NotificationErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ConversionsTotal:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dscovr_mag", Name: "conversions_total"}),
		ConversionErrors:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "dscovr_mag", Name: "conversion_errors_total"}, []string{"kind"}),
		RecordsEmitted:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dscovr_mag", Name: "records_emitted_total"}),
		RecordsSkipped:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dscovr_mag", Name: "records_skipped_total"}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "dscovr_mag", Name: "conversion_duration_seconds"}),
		LastSuccessTime:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "dscovr_mag", Name: "last_success_timestamp_seconds"}),
		NotificationsSent:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dscovr_mag", Name: "notifications_sent_total"}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "dscovr_mag", Name: "notification_errors_total"}),
	}
}
