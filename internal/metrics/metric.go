// Package metrics exposes Prometheus collectors for the reading pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sightspeech"

// Metrics holds every collector on a private registry. A nil *Metrics is
// valid and records nothing, so components can take it optionally.
type Metrics struct {
	registry *prometheus.Registry

	framesRead      prometheus.Counter
	framesProcessed prometheus.Counter
	framesSkipped   prometheus.Counter
	ocrFailures     prometheus.Counter
	ocrDuration     prometheus.Histogram
	detections      prometheus.Gauge
	words           prometheus.Gauge
	commands        *prometheus.CounterVec
	remoteRequests  *prometheus.CounterVec
	remoteRetries   *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	remoteRejected  prometheus.Counter
	streamClients   prometheus.Gauge
}

// New creates and registers all collectors, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_read_total",
			Help: "Frames read from the video source.",
		}),
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_processed_total",
			Help: "Frames that received a local OCR pass.",
		}),
		framesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_skipped_total",
			Help: "Frames skipped by the cadence policy or for invalid dimensions.",
		}),
		ocrFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ocr_failures_total",
			Help: "Local OCR passes that returned an error.",
		}),
		ocrDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ocr_duration_seconds",
			Help:    "Latency of a local OCR pass including correction.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		detections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "detections",
			Help: "Detections in the latest published reading.",
		}),
		words: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "words",
			Help: "Corrected entries in the latest published reading.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total",
			Help: "Commands consumed by the frame loop.",
		}, []string{"command"}),
		remoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "remote_requests_total",
			Help: "Remote extraction calls by mode and outcome.",
		}, []string{"mode", "outcome"}),
		remoteRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "remote_retries_total",
			Help: "Remote extraction attempts that failed with a retryable error.",
		}, []string{"mode"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "remote_duration_seconds",
			Help:    "Latency of a remote extraction call including retries.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}, []string{"mode"}),
		remoteRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "remote_rejected_total",
			Help: "Remote commands rejected because a call was already in flight.",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "stream_clients",
			Help: "Connected live-frame stream clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.framesRead, m.framesProcessed, m.framesSkipped,
		m.ocrFailures, m.ocrDuration, m.detections, m.words,
		m.commands, m.remoteRequests, m.remoteRetries, m.remoteDuration,
		m.remoteRejected, m.streamClients,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
