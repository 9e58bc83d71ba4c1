package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roman-kulish/drone-detector/internal/acquisition"
	"github.com/roman-kulish/drone-detector/internal/alert"
	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/metrics"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
	"github.com/roman-kulish/drone-detector/internal/storage"
	"github.com/roman-kulish/drone-detector/internal/web"
)

const (
	alertQueueSize = 16
	publishTimeout = 10 * time.Second
)

// WithInterval sets how often the monitor consumes the latest frames
func WithInterval(d time.Duration) func(*Monitor) {
	return func(m *Monitor) {
		m.interval = d
	}
}

// WithBoard sets the live view the monitor updates
func WithBoard(b *web.Board) func(*Monitor) {
	return func(m *Monitor) {
		m.board = b
	}
}

// WithMetrics sets the metrics the monitor updates
func WithMetrics(mt *metrics.Metrics) func(*Monitor) {
	return func(m *Monitor) {
		m.metrics = mt
	}
}

// WithAlerts enables alerting through publisher on the rising edge of detection
func WithAlerts(tracker *alert.Tracker, publisher alert.Publisher) func(*Monitor) {
	return func(m *Monitor) {
		m.tracker = tracker
		m.publisher = publisher
	}
}

// WithStore persists classified frames of the session according to mode
func WithStore(store storage.Store, sessionID int64, mode StorageMode) func(*Monitor) {
	return func(m *Monitor) {
		m.store = store
		m.sessionID = sessionID
		m.storeMode = mode
	}
}

// WithMonitorLogger sets the logger for the monitor
func WithMonitorLogger(logger *slog.Logger) func(*Monitor) {
	return func(m *Monitor) {
		m.logger = logger.With(slog.String("component", "monitor"))
	}
}

// Monitor is the consume loop: on every tick it takes the latest snapshot of
// each radio, classifies it if it has not been seen yet and hands the result
// to the configured sinks.
type Monitor struct {
	buffer    *acquisition.FrameBuffer
	detectors map[spectrum.Radio]*detector.Detector
	radios    []spectrum.Radio
	lastSeq   map[spectrum.Radio]uint64
	interval  time.Duration

	board     *web.Board
	metrics   *metrics.Metrics
	tracker   *alert.Tracker
	publisher alert.Publisher
	alerts    chan alert.Alert

	store     storage.Store
	sessionID int64
	storeMode StorageMode

	logger *slog.Logger
}

// NewMonitor creates a monitor for every radio registered in buffer. Each
// radio must have a detector sized to its channel count.
func NewMonitor(buffer *acquisition.FrameBuffer, detectors map[spectrum.Radio]*detector.Detector, options ...func(*Monitor)) (*Monitor, error) {
	m := Monitor{
		buffer:    buffer,
		detectors: detectors,
		lastSeq:   make(map[spectrum.Radio]uint64),
		interval:  DefaultRefreshInterval,
		storeMode: StoreDetections,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, spec := range buffer.Radios() {
		d, ok := detectors[spec.Name]
		if !ok {
			return nil, fmt.Errorf("no detector for radio %s", spec.Name)
		}
		if d.NumChannels() != spec.NumChannels {
			return nil, fmt.Errorf("radio %s: detector expects %d channels, radio has %d: %w",
				spec.Name, d.NumChannels(), spec.NumChannels, detector.ErrLengthMismatch)
		}
		m.radios = append(m.radios, spec.Name)
	}

	for _, option := range options {
		option(&m)
	}

	if m.interval <= 0 {
		return nil, fmt.Errorf("invalid monitor interval %s", m.interval)
	}
	if m.publisher != nil {
		m.alerts = make(chan alert.Alert, alertQueueSize)
	}

	return &m, nil
}

// Run consumes frames until ctx is cancelled. It must be called once.
func (m *Monitor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	if m.publisher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.publishAlerts(ctx)
		}()
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("monitoring started", slog.Duration("interval", m.interval), slog.Int("radios", len(m.radios)))

	for {
		select {
		case <-ctx.Done():
			if m.alerts != nil {
				close(m.alerts)
			}
			wg.Wait()

			m.logger.Info("monitoring stopped")
			return nil

		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick processes the latest frame of every radio once. Frames already seen are skipped.
func (m *Monitor) Tick(ctx context.Context) {
	for _, radio := range m.radios {
		snapshot, ok := m.buffer.Latest(radio)
		if !ok || snapshot.Seq == m.lastSeq[radio] {
			continue
		}
		m.lastSeq[radio] = snapshot.Seq

		if err := m.process(ctx, snapshot); err != nil {
			m.logger.Error(err.Error(), slog.String("radio", radio.String()), slog.Uint64("seq", snapshot.Seq))
		}
	}
}

func (m *Monitor) process(ctx context.Context, s spectrum.Snapshot) error {
	result, err := m.detectors[s.Radio].Process(s.Values)
	if err != nil {
		return fmt.Errorf("classifying frame: %w", err)
	}
	stats := detector.Summarize(s.Values)

	m.logger.Debug("frame classified",
		slog.String("radio", s.Radio.String()),
		slog.Uint64("seq", s.Seq),
		slog.Float64("threshold", result.Threshold),
		slog.Int("candidates", result.Count(detector.Candidate)),
		slog.Int("interference", result.Count(detector.Interference)),
	)

	if m.board != nil {
		m.board.Update(s, result, stats)
	}
	if m.metrics != nil {
		m.metrics.ObserveResult(s.Radio, result, stats)
	}

	if m.tracker != nil {
		if a, raised := m.tracker.Update(s.Radio, result); raised {
			m.enqueueAlert(a)
		}
	}

	if m.store != nil && (m.storeMode == StoreAll || result.Detected) {
		if err = m.store.StoreFrame(ctx, spectrum.NewFrameRecord(m.sessionID, s, result)); err != nil {
			m.observeSinkError("storage")
			return fmt.Errorf("storing frame: %w", err)
		}
	}

	return nil
}

func (m *Monitor) enqueueAlert(a alert.Alert) {
	if m.alerts == nil {
		return
	}

	select {
	case m.alerts <- a:
	default:
		m.logger.Warn("alert queue full, dropping alert", slog.String("radio", a.Radio.String()), slog.String("id", a.ID))
		m.observeSinkError("alert")
	}
}

func (m *Monitor) publishAlerts(ctx context.Context) {
	for a := range m.alerts {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err := m.publisher.Publish(pubCtx, a)
		cancel()

		if err != nil {
			m.logger.Error(fmt.Sprintf("publishing alert: %s", err.Error()), slog.String("radio", a.Radio.String()))
			m.observeSinkError("alert")
			continue
		}
		if m.metrics != nil {
			m.metrics.ObserveAlert(a.Radio)
		}
	}
}

func (m *Monitor) observeSinkError(sink string) {
	if m.metrics != nil {
		m.metrics.ObserveSinkError(sink)
	}
}
