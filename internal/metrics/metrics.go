package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"farmwatch/internal/model"
)

// Metrics holds all pipeline metrics
type Metrics struct {
	// Frame counters
	FramesGrabbed   atomic.Uint64
	FramesProcessed atomic.Uint64

	// Error counters
	CaptureFailures atomic.Uint64
	DetectionErrors atomic.Uint64
	RenderErrors    atomic.Uint64
	PublishFailures atomic.Uint64 // all sinks

	// Latency of the last processed frame
	ProcessLatencyMs atomic.Uint64

	// Last published state
	HumanPresent  atomic.Uint64 // 0 = no, 1 = yes
	DangerPresent atomic.Uint64 // 0 = no, 1 = yes

	detections    *prometheus.CounterVec
	animals       *prometheus.GaugeVec
	published     prometheus.Counter
	publishErrors *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics()

	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "farmwatch_frames_grabbed_total",
			Help: "Total frames grabbed from the camera",
		},
		func() float64 { return float64(m.FramesGrabbed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "farmwatch_frames_processed_total",
			Help: "Total frames sent through detection",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "farmwatch_capture_failures_total",
			Help: "Total capture failures",
		},
		func() float64 { return float64(m.CaptureFailures.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "farmwatch_detection_errors_total",
			Help: "Total frames skipped because detection failed",
		},
		func() float64 { return float64(m.DetectionErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "farmwatch_render_errors_total",
			Help: "Total frames that could not be rendered",
		},
		func() float64 { return float64(m.RenderErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "farmwatch_process_latency_ms",
			Help: "Detection and aggregation latency of the last processed frame",
		},
		func() float64 { return float64(m.ProcessLatencyMs.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "farmwatch_human_present",
			Help: "Human seen in the last processed frame (0/1)",
		},
		func() float64 { return float64(m.HumanPresent.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "farmwatch_danger_present",
			Help: "Dangerous animal seen in the last processed frame (0/1)",
		},
		func() float64 { return float64(m.DangerPresent.Load()) },
	))

	m.detections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmwatch_detections_total",
			Help: "Detections above the confidence threshold by label",
		},
		[]string{"label"},
	)
	m.registry.MustRegister(m.detections)

	m.animals = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "farmwatch_farm_animals",
			Help: "Farm animals counted in the last processed frame by kind",
		},
		[]string{"kind"},
	)
	m.registry.MustRegister(m.animals)

	m.published = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "farmwatch_summaries_published_total",
		Help: "Summaries handed to the sinks",
	})
	m.registry.MustRegister(m.published)

	m.publishErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmwatch_publish_errors_total",
			Help: "Failed publishes by sink",
		},
		[]string{"sink"},
	)
	m.registry.MustRegister(m.publishErrors)
}

// ObserveFrame records a processed frame and its surviving detections.
func (m *Metrics) ObserveFrame(summary model.FrameSummary, detections []model.Detection, duration time.Duration) {
	m.FramesProcessed.Add(1)
	m.ProcessLatencyMs.Store(uint64(duration.Milliseconds()))

	for _, det := range detections {
		m.detections.WithLabelValues(det.Label).Inc()
	}
	for kind, n := range summary.Counts() {
		m.animals.WithLabelValues(kind).Set(float64(n))
	}
	m.HumanPresent.Store(boolToUint(summary.HumanPresent()))
	m.DangerPresent.Store(boolToUint(summary.DangerPresent()))
}

// SummaryPublished counts a publish attempt.
func (m *Metrics) SummaryPublished() {
	m.published.Inc()
}

// PublishFailed counts a failed publish for one sink.
func (m *Metrics) PublishFailed(sink string) {
	m.PublishFailures.Add(1)
	m.publishErrors.WithLabelValues(sink).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
