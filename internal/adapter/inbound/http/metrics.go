package http

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sentinel-Gate/httpdissect/internal/service"
)

const namespace = "httpdissect"

// Metrics holds the Prometheus collectors for the inspection API and the
// dissection service. It implements service.MetricsRecorder.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Dissections     *prometheus.CounterVec
	Classifications *prometheus.CounterVec
	CaptureDrops    prometheus.Counter
	CapturesStored  prometheus.Counter
}

// NewMetrics creates and registers all metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Inspection API requests by route and status code",
			},
			[]string{"route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Inspection API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		Dissections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dissections_total",
				Help:      "Dissection attempts by message kind and result",
			},
			[]string{"kind", "result"},
		),
		Classifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "Payload classifications by resulting kind",
			},
			[]string{"kind"},
		),
		CaptureDrops: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capture_drops_total",
				Help:      "Captured records dropped due to backpressure",
			},
		),
		CapturesStored: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "captures_stored_total",
				Help:      "Captured records written to the store",
			},
		),
	}
}

func (m *Metrics) RecordClassification(kind string) {
	m.Classifications.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordDissection(kind, result string) {
	m.Dissections.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordCaptureDrop() {
	m.CaptureDrops.Inc()
}

func (m *Metrics) RecordCapturesStored(n int) {
	m.CapturesStored.Add(float64(n))
}

func (m *Metrics) observeRequest(route string, status int, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

var _ service.MetricsRecorder = (*Metrics)(nil)
