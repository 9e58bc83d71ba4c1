package app

import (
	"errors"
	"math"
	"time"

	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

// DefaultMaxMagnitude matches the top of the live bar chart scale
const DefaultMaxMagnitude = 15

// ErrNoFrames is returned when there is nothing to render
var ErrNoFrames = errors.New("no frames to render")

// MagnitudeBounds is the magnitude range the color gradient is stretched over
type MagnitudeBounds struct {
	Min int
	Max int
}

// Row is one frame of the waterfall
type Row struct {
	Timestamp time.Time
	Values    []int
	Labels    []detector.Label
	Threshold float64
	Detected  bool
}

// Waterfall accumulates the frames of a single radio, one row per frame, oldest first
type Waterfall struct {
	Radio        spectrum.Radio
	FirstChannel int
	NumChannels  int

	TimestampStart, TimestampEnd time.Time
	Rows                         []Row

	minSeen, maxSeen int
	detections       int
}

// NewWaterfall creates an empty waterfall for radio, whose first channel is firstChannel
func NewWaterfall(radio spectrum.Radio, firstChannel int) *Waterfall {
	return &Waterfall{
		Radio:        radio,
		FirstChannel: firstChannel,
		minSeen:      math.MaxInt,
		maxSeen:      math.MinInt,
	}
}

// Update appends a frame. Frames of other radios are ignored.
func (w *Waterfall) Update(frame *spectrum.FrameRecord) {
	if frame == nil || frame.Radio != w.Radio {
		return
	}

	w.NumChannels = max(w.NumChannels, len(frame.Values))

	if w.TimestampStart.IsZero() || w.TimestampStart.After(frame.Timestamp) {
		w.TimestampStart = frame.Timestamp
	}
	if w.TimestampEnd.IsZero() || w.TimestampEnd.Before(frame.Timestamp) {
		w.TimestampEnd = frame.Timestamp
	}

	for _, v := range frame.Values {
		w.minSeen = min(w.minSeen, v)
		w.maxSeen = max(w.maxSeen, v)
	}
	if frame.Detected {
		w.detections++
	}

	w.Rows = append(w.Rows, Row{
		Timestamp: frame.Timestamp,
		Values:    frame.Values,
		Labels:    frame.Labels,
		Threshold: frame.Threshold,
		Detected:  frame.Detected,
	})
}

// Len returns the number of rows
func (w *Waterfall) Len() int {
	return len(w.Rows)
}

// Detections returns how many rows carry at least one candidate channel
func (w *Waterfall) Detections() int {
	return w.detections
}

// Bounds returns the magnitude range of the accumulated frames. The lower
// bound never exceeds zero and the upper bound is at least DefaultMaxMagnitude,
// so a quiet capture does not get stretched into false colors.
func (w *Waterfall) Bounds() MagnitudeBounds {
	if len(w.Rows) == 0 || w.minSeen > w.maxSeen {
		return MagnitudeBounds{Min: 0, Max: DefaultMaxMagnitude}
	}
	return MagnitudeBounds{
		Min: min(0, w.minSeen),
		Max: max(DefaultMaxMagnitude, w.maxSeen),
	}
}

// Label returns the label of a cell, Quiet when the frame has no labels stored
func (r Row) Label(channel int) detector.Label {
	if channel < 0 || channel >= len(r.Labels) {
		return detector.Quiet
	}
	return r.Labels[channel]
}

// Value returns the magnitude of a cell, zero for missing readings
func (r Row) Value(channel int) int {
	if channel < 0 || channel >= len(r.Values) {
		return 0
	}
	return r.Values[channel]
}
