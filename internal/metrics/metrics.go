// Package metrics exposes detector and acquisition state as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

const namespace = "drone_detector"

// Metrics holds all Prometheus collectors of the detector
type Metrics struct {
	registry *prometheus.Registry

	// Classification metrics (all with 'radio' label)
	threshold           *prometheus.GaugeVec   // Detection threshold of the last frame
	candidateChannels   *prometheus.GaugeVec   // Channels labelled candidate in the last frame
	interferenceChannel *prometheus.GaugeVec   // Channels labelled interference in the last frame
	detected            *prometheus.GaugeVec   // 1 while the last frame holds a candidate
	frameMean           *prometheus.GaugeVec   // Mean magnitude of the last frame
	frameStdDev         *prometheus.GaugeVec   // Standard deviation of the last frame magnitudes
	framePeak           *prometheus.GaugeVec   // Peak magnitude of the last frame
	framesTotal         *prometheus.CounterVec // Frames classified
	detectionsTotal     *prometheus.CounterVec // Frames in which a candidate was detected

	// Acquisition metrics
	linesTotal       *prometheus.CounterVec // Protocol lines accepted (by radio)
	parseErrorsTotal *prometheus.CounterVec // Lines rejected (by reason)

	// Sink metrics
	alertsTotal     *prometheus.CounterVec // Alerts published (by radio)
	sinkErrorsTotal *prometheus.CounterVec // Failed writes to storage or broker (by sink)
}

// New creates the collectors and registers them with reg
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	radio := []string{"radio"}

	return &Metrics{
		registry: reg,

		threshold: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "threshold",
				Help:      "Detection threshold (median plus sensitivity) of the last frame",
			},
			radio,
		),
		candidateChannels: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "candidate_channels",
				Help:      "Number of channels labelled candidate in the last frame",
			},
			radio,
		),
		interferenceChannel: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "interference_channels",
				Help:      "Number of channels labelled interference in the last frame",
			},
			radio,
		),
		detected: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "detected",
				Help:      "1 if the last frame contains a drone candidate, 0 otherwise",
			},
			radio,
		),
		frameMean: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "frame_mean",
				Help:      "Mean channel magnitude of the last frame",
			},
			radio,
		),
		frameStdDev: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "frame_stddev",
				Help:      "Standard deviation of channel magnitudes of the last frame",
			},
			radio,
		),
		framePeak: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "frame_peak",
				Help:      "Peak channel magnitude of the last frame",
			},
			radio,
		),
		framesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_total",
				Help:      "Total frames classified",
			},
			radio,
		),
		detectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detections_total",
				Help:      "Total frames in which a drone candidate was detected",
			},
			radio,
		),
		linesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "acquisition_lines_total",
				Help:      "Total protocol lines accepted from the scanner",
			},
			radio,
		),
		parseErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "acquisition_parse_errors_total",
				Help:      "Total scanner lines rejected by the parser",
			},
			[]string{"reason"},
		),
		alertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Total detection alerts published",
			},
			radio,
		),
		sinkErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_errors_total",
				Help:      "Total failed writes to a result sink",
			},
			[]string{"sink"},
		),
	}
}

// ObserveResult records the classification of one frame
func (m *Metrics) ObserveResult(radio spectrum.Radio, r detector.Result, s detector.Stats) {
	name := string(radio)

	m.threshold.WithLabelValues(name).Set(r.Threshold)
	m.candidateChannels.WithLabelValues(name).Set(float64(r.Count(detector.Candidate)))
	m.interferenceChannel.WithLabelValues(name).Set(float64(r.Count(detector.Interference)))
	m.frameMean.WithLabelValues(name).Set(s.Mean)
	m.frameStdDev.WithLabelValues(name).Set(s.StdDev)
	m.framePeak.WithLabelValues(name).Set(float64(s.Peak))
	m.framesTotal.WithLabelValues(name).Inc()

	if r.Detected {
		m.detected.WithLabelValues(name).Set(1)
		m.detectionsTotal.WithLabelValues(name).Inc()
	} else {
		m.detected.WithLabelValues(name).Set(0)
	}
}

// ObserveLine counts an accepted protocol line
func (m *Metrics) ObserveLine(radio spectrum.Radio) {
	m.linesTotal.WithLabelValues(string(radio)).Inc()
}

// ObserveParseError counts a rejected protocol line
func (m *Metrics) ObserveParseError(reason string) {
	m.parseErrorsTotal.WithLabelValues(reason).Inc()
}

// ObserveAlert counts a published alert
func (m *Metrics) ObserveAlert(radio spectrum.Radio) {
	m.alertsTotal.WithLabelValues(string(radio)).Inc()
}

// ObserveSinkError counts a failed write to sink, e.g. "storage" or "mqtt"
func (m *Metrics) ObserveSinkError(sink string) {
	m.sinkErrorsTotal.WithLabelValues(sink).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
