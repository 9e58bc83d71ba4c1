// Package alert turns detections into discrete alerts and publishes them.
//
// An alert is raised on the rising edge of detection for a radio: the first
// frame with a candidate after one or more frames without. A candidate that
// persists across frames produces a single alert.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

// Alert reports that a drone candidate appeared on a radio
type Alert struct {
	ID        string         `json:"id"`
	Radio     spectrum.Radio `json:"radio"`
	Timestamp time.Time      `json:"timestamp"`
	Threshold float64        `json:"threshold"`
	Channels  []int          `json:"channels"` // absolute nRF24 channel numbers
	Cleared   bool           `json:"cleared"`  // set on the falling edge when WithClearAlerts is used
}

// Publisher delivers alerts to an external system
type Publisher interface {
	Publish(ctx context.Context, a Alert) error
	Close() error
}

// WithFirstChannel sets the channel number of the first reading of a radio,
// e.g. 40 for a radio covering channels 40-80
func WithFirstChannel(radio spectrum.Radio, first int) func(*Tracker) {
	return func(t *Tracker) {
		t.firstChannel[radio] = first
	}
}

// WithClearAlerts makes the tracker also report the falling edge
func WithClearAlerts() func(*Tracker) {
	return func(t *Tracker) {
		t.clear = true
	}
}

// WithTrackerClock sets the time source used to stamp alerts
func WithTrackerClock(now func() time.Time) func(*Tracker) {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker remembers the detection state of every radio
type Tracker struct {
	mu           sync.Mutex
	active       map[spectrum.Radio]bool
	firstChannel map[spectrum.Radio]int
	clear        bool
	now          func() time.Time
}

// NewTracker creates a tracker with no active detections
func NewTracker(options ...func(*Tracker)) *Tracker {
	t := Tracker{
		active:       make(map[spectrum.Radio]bool),
		firstChannel: make(map[spectrum.Radio]int),
		now:          time.Now,
	}

	for _, option := range options {
		option(&t)
	}

	return &t
}

// Update feeds the result of a frame and reports whether it raised an alert
func (t *Tracker) Update(radio spectrum.Radio, r detector.Result) (Alert, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	was := t.active[radio]
	t.active[radio] = r.Detected

	switch {
	case r.Detected && !was:
		return t.newAlert(radio, r, false), true
	case !r.Detected && was && t.clear:
		return t.newAlert(radio, r, true), true
	default:
		return Alert{}, false
	}
}

// Active reports whether a candidate is currently detected on the radio
func (t *Tracker) Active(radio spectrum.Radio) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[radio]
}

func (t *Tracker) newAlert(radio spectrum.Radio, r detector.Result, cleared bool) Alert {
	first := t.firstChannel[radio]

	channels := []int{}
	for i, l := range r.Labels {
		if l == detector.Candidate {
			channels = append(channels, first+i)
		}
	}

	return Alert{
		ID:        uuid.NewString(),
		Radio:     radio,
		Timestamp: t.now().UTC(),
		Threshold: r.Threshold,
		Channels:  channels,
		Cleared:   cleared,
	}
}
