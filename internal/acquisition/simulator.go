package acquisition

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	DefaultSimulatorInterval = 20 * time.Millisecond

	simNoiseMax      = 2
	simWifiWidth     = 20 // an 802.11 channel spans about 20 nRF24 channels
	simWifiLevel     = 7
	simCandidateLow  = 10
	simCandidateHigh = 14
)

// WithSimulatorInterval sets the delay between two emitted frame sets
func WithSimulatorInterval(d time.Duration) func(*Simulator) {
	return func(s *Simulator) {
		s.interval = d
	}
}

// WithSeed makes the generated frames reproducible
func WithSeed(seed uint64) func(*Simulator) {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithProbabilities sets the per-frame chance of a broadband and a narrowband signal
func WithProbabilities(wifi, candidate float64) func(*Simulator) {
	return func(s *Simulator) {
		s.wifiProb = wifi
		s.candidateProb = candidate
	}
}

// WithSimulatorLogger sets the logger for the simulator
func WithSimulatorLogger(logger *slog.Logger) func(*Simulator) {
	return func(s *Simulator) {
		s.logger = logger.With(slog.String("component", "simulator"))
	}
}

// Simulator emits synthetic scanner output for running without hardware:
// a low noise floor, an occasional Wi-Fi-like block and an occasional
// single-channel spike.
type Simulator struct {
	radios   []RadioSpec
	interval time.Duration
	rng      *rand.Rand

	wifiProb      float64
	candidateProb float64

	logger *slog.Logger
}

// NewSimulator creates a simulator for the given radios
func NewSimulator(radios []RadioSpec, options ...func(*Simulator)) *Simulator {
	s := Simulator{
		radios:        radios,
		interval:      DefaultSimulatorInterval,
		rng:           rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		wifiProb:      0.3,
		candidateProb: 0.2,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Frame generates one frame for the radio.
func (s *Simulator) Frame(spec RadioSpec) []int {
	n := spec.NumChannels
	frame := make([]int, n)
	for i := range frame {
		frame[i] = s.rng.IntN(simNoiseMax + 1)
	}

	if n > 0 && s.rng.Float64() < s.wifiProb {
		width := min(simWifiWidth, n)
		start := s.rng.IntN(n - width + 1)
		for i := start; i < start+width; i++ {
			frame[i] = simWifiLevel + s.rng.IntN(2)
		}
	}

	if n > 0 && s.rng.Float64() < s.candidateProb {
		frame[s.rng.IntN(n)] = simCandidateLow + s.rng.IntN(simCandidateHigh-simCandidateLow+1)
	}

	return frame
}

// Run writes one line per radio every interval until ctx is cancelled or a
// write fails.
func (s *Simulator) Run(ctx context.Context, w io.Writer) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("simulating scanner output", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			for _, spec := range s.radios {
				line := FormatLine(spec.Label, s.Frame(spec)) + "\n"
				if _, err := io.WriteString(w, line); err != nil {
					return fmt.Errorf("writing simulated frame: %w", err)
				}
			}
		}
	}
}
