// Package web serves the live view of the detector: one bar chart per radio,
// colored by channel label, and a JSON status endpoint.
package web

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

// RadioView describes how a radio is presented
type RadioView struct {
	Name         spectrum.Radio `json:"name"`
	FirstChannel int            `json:"firstChannel"`
	NumChannels  int            `json:"numChannels"`
	Color        string         `json:"color"` // bar color of quiet channels
}

// Status is the latest classified frame of a radio
type Status struct {
	RadioView

	Title     string           `json:"title"`
	Seq       uint64           `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	Values    []int            `json:"values"`
	Threshold float64          `json:"threshold"`
	Labels    []detector.Label `json:"labels"`
	Detected  bool             `json:"detected"`
	Stats     detector.Stats   `json:"stats"`
}

func (s Status) clone() Status {
	s.Values = slices.Clone(s.Values)
	s.Labels = slices.Clone(s.Labels)
	return s
}

// Title formats the chart heading of a radio, e.g.
// "LEFT (0-40): !!! DRONE !!! | Floor: 6.0"
func Title(v RadioView, r detector.Result) string {
	state := "Clear"
	if r.Detected {
		state = "!!! DRONE !!!"
	}
	return fmt.Sprintf("%s (%d-%d): %s | Floor: %.1f",
		strings.ToUpper(string(v.Name)), v.FirstChannel, v.FirstChannel+v.NumChannels, state, r.Threshold)
}

// Board holds the latest status of every radio. It is written by the monitor
// loop and read by HTTP handlers.
type Board struct {
	mu     sync.RWMutex
	order  []spectrum.Radio
	status map[spectrum.Radio]Status
}

// NewBoard creates a board for the radios, initially showing empty frames
func NewBoard(radios ...RadioView) *Board {
	b := Board{
		status: make(map[spectrum.Radio]Status, len(radios)),
	}

	for _, v := range radios {
		b.order = append(b.order, v.Name)
		b.status[v.Name] = Status{
			RadioView: v,
			Title:     Title(v, detector.Result{}),
			Values:    make([]int, v.NumChannels),
			Labels:    make([]detector.Label, v.NumChannels),
			Stats:     detector.Stats{PeakAt: -1},
		}
	}

	return &b
}

// Update replaces the status of the snapshot's radio. Unknown radios are ignored.
func (b *Board) Update(s spectrum.Snapshot, r detector.Result, stats detector.Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.status[s.Radio]
	if !ok {
		return
	}

	b.status[s.Radio] = Status{
		RadioView: current.RadioView,
		Title:     Title(current.RadioView, r),
		Seq:       s.Seq,
		Timestamp: s.Timestamp,
		Values:    slices.Clone(s.Values),
		Threshold: r.Threshold,
		Labels:    slices.Clone(r.Labels),
		Detected:  r.Detected,
		Stats:     stats,
	}
}

// Status returns copies of all statuses in registration order
func (b *Board) Status() []Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Status, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.status[name].clone())
	}
	return out
}
