// Package detector implements per-frame classification of channel magnitudes
// into quiet channels, narrowband candidate signals and broadband interference.
//
// Classification is stateless: every frame is judged on its own, with a noise
// floor estimated from that frame alone.
package detector

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when a frame does not hold exactly the
// configured number of channels. Padding and truncation belong to the
// acquisition boundary, the detector refuses such frames.
var ErrLengthMismatch = errors.New("frame length mismatch")

// Result is the outcome of classifying a single frame.
type Result struct {
	Threshold float64 `json:"threshold"`
	Labels    []Label `json:"labels"`
	Detected  bool    `json:"detected"`
}

// Count returns how many channels carry the given label.
func (r Result) Count(l Label) int {
	var n int
	for _, label := range r.Labels {
		if label == l {
			n++
		}
	}
	return n
}

// Detector binds the classification parameters to a fixed channel count.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	numChannels int
	params      Params
}

// New creates a Detector for frames of numChannels channels.
func New(numChannels int, params Params) (*Detector, error) {
	if numChannels <= 0 {
		return nil, fmt.Errorf("%w: number of channels %d must be positive", ErrInvalidParams, numChannels)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Detector{numChannels: numChannels, params: params}, nil
}

// NumChannels returns the frame length accepted by Process.
func (d *Detector) NumChannels() int {
	return d.numChannels
}

// Params returns the classification parameters.
func (d *Detector) Params() Params {
	return d.params
}

// Process estimates the noise floor of the frame and classifies its channels.
func (d *Detector) Process(frame []int) (Result, error) {
	if len(frame) != d.numChannels {
		return Result{}, fmt.Errorf("%w: expected %d channels, got %d", ErrLengthMismatch, d.numChannels, len(frame))
	}

	threshold := EstimateFloor(frame, d.params.Sensitivity)
	labels, detected := Classify(frame, threshold, d.params)

	return Result{
		Threshold: threshold,
		Labels:    labels,
		Detected:  detected,
	}, nil
}
