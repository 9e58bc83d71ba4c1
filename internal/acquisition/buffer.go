package acquisition

import (
	"fmt"
	"sync"
	"time"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

// RadioSpec describes a radio as seen by the acquisition layer.
type RadioSpec struct {
	Name        spectrum.Radio // Radio name, e.g. "left"
	Label       string         // Line protocol label, e.g. "DATA_LEFT"
	NumChannels int            // Frame length after normalization
}

type slot struct {
	spec   RadioSpec
	latest *spectrum.Snapshot
}

// FrameBuffer holds the most recent complete frame of every registered radio.
// Writers publish whole frames and readers receive private copies, so no
// mutable state is shared between the acquisition goroutine and consumers.
// There is no queue: a newer frame replaces an unread older one.
type FrameBuffer struct {
	mu      sync.RWMutex
	order   []*slot
	byLabel map[string]*slot
	byName  map[spectrum.Radio]*slot
}

// NewFrameBuffer creates a buffer for the given radios. Radio names and labels
// must be unique and every radio needs a positive channel count.
func NewFrameBuffer(radios ...RadioSpec) (*FrameBuffer, error) {
	if len(radios) == 0 {
		return nil, fmt.Errorf("invalid buffer parameters: no radios")
	}

	fb := &FrameBuffer{
		byLabel: make(map[string]*slot, len(radios)),
		byName:  make(map[spectrum.Radio]*slot, len(radios)),
	}
	for _, r := range radios {
		if r.NumChannels <= 0 {
			return nil, fmt.Errorf("invalid buffer parameters: radio %s has %d channels", r.Name, r.NumChannels)
		}
		if r.Name == "" || r.Label == "" {
			return nil, fmt.Errorf("invalid buffer parameters: radio name and label are required")
		}
		if _, ok := fb.byLabel[r.Label]; ok {
			return nil, fmt.Errorf("invalid buffer parameters: duplicate label %s", r.Label)
		}
		if _, ok := fb.byName[r.Name]; ok {
			return nil, fmt.Errorf("invalid buffer parameters: duplicate radio %s", r.Name)
		}

		s := &slot{spec: r}
		fb.order = append(fb.order, s)
		fb.byLabel[r.Label] = s
		fb.byName[r.Name] = s
	}

	return fb, nil
}

// Publish normalizes values to the channel count of the radio registered for
// label and makes the result the latest snapshot of that radio.
func (fb *FrameBuffer) Publish(label string, values []int, timestamp time.Time) (spectrum.Snapshot, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	s, ok := fb.byLabel[label]
	if !ok {
		return spectrum.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}

	var seq uint64 = 1
	if s.latest != nil {
		seq = s.latest.Seq + 1
	}

	s.latest = &spectrum.Snapshot{
		Radio:     s.spec.Name,
		Seq:       seq,
		Timestamp: timestamp,
		Values:    Normalize(values, s.spec.NumChannels),
	}

	return s.latest.Clone(), nil
}

// Latest returns a copy of the most recent snapshot of the radio. Until the
// first frame arrives it returns an all-zero frame with sequence number 0 and
// false.
func (fb *FrameBuffer) Latest(radio spectrum.Radio) (spectrum.Snapshot, bool) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	s, ok := fb.byName[radio]
	if !ok {
		return spectrum.Snapshot{}, false
	}
	if s.latest == nil {
		return spectrum.Snapshot{
			Radio:  radio,
			Values: make([]int, s.spec.NumChannels),
		}, false
	}

	return s.latest.Clone(), true
}

// Radios returns the registered radio specs in registration order.
func (fb *FrameBuffer) Radios() []RadioSpec {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	specs := make([]RadioSpec, 0, len(fb.order))
	for _, s := range fb.order {
		specs = append(specs, s.spec)
	}
	return specs
}
