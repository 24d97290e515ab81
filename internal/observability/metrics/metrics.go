package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fuelbills_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	uploadsTotal      *prometheus.CounterVec
	extractionsTotal  *prometheus.CounterVec
	extractionLatency *prometheus.HistogramVec
	exportsTotal      *prometheus.CounterVec
)

// Init registers the service metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		uploadsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "uploads_total",
				Help: "Total uploaded files by result",
			},
			[]string{"result"},
		)
		extractionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "extractions_total",
				Help: "Total page extractions by result",
			},
			[]string{"result"},
		)
		extractionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "extraction_latency_seconds",
				Help:    "Model extraction latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		exportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "exports_total",
				Help: "Total export requests by format",
			},
			[]string{"format"},
		)

		prometheus.MustRegister(uploadsTotal, extractionsTotal, extractionLatency, exportsTotal)
	})
}

// ObserveUpload records one uploaded file outcome.
func ObserveUpload(result string) {
	if uploadsTotal != nil {
		uploadsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveExtraction records one page extraction outcome with its latency.
func ObserveExtraction(result string, elapsed time.Duration) {
	if extractionsTotal != nil {
		extractionsTotal.WithLabelValues(result).Inc()
	}
	if extractionLatency != nil {
		extractionLatency.WithLabelValues(result).Observe(elapsed.Seconds())
	}
}

// ObserveExport records one export request.
func ObserveExport(format string) {
	if exportsTotal != nil {
		exportsTotal.WithLabelValues(format).Inc()
	}
}
