package spectrum

import (
	"slices"
	"time"

	"github.com/roman-kulish/drone-detector/internal/detector"
)

const (
	baseFrequencyHz  = 2400e6
	channelSpacingHz = 1e6
)

// ChannelFrequency returns the center frequency of an nRF24 channel in Hz.
// It is used for display only.
func ChannelFrequency(channel int) float64 {
	return baseFrequencyHz + float64(channel)*channelSpacingHz
}

// Radio identifies one of the receiver front-ends, e.g. "left" or "right".
type Radio string

func (r Radio) String() string {
	return string(r)
}

// Snapshot is an immutable copy of the most recent complete frame of a radio.
// Seq increases by one with every frame published for the radio, so consumers
// can tell a fresh frame from one they have already seen.
type Snapshot struct {
	Radio     Radio     `json:"radio"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Values    []int     `json:"values"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	s.Values = slices.Clone(s.Values)
	return s
}

// Session represents a single monitoring run. Each session captures when the
// run started and how the radios and the detector were configured.
type Session struct {
	ID        int64     `json:"ID"`                      // Unique identifier for the session
	StartTime time.Time `json:"startTime"`               // When the monitoring session began
	Source    string    `json:"source"`                  // Acquisition source, e.g. serial port path or "simulate"
	Config    *string   `json:"config,string,omitempty"` // Optional configuration in JSON format
}

// FrameRecord is a classified frame as it is persisted and read back.
type FrameRecord struct {
	SessionID int64            `json:"sessionID"`
	Radio     Radio            `json:"radio"`
	Seq       uint64           `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	Values    []int            `json:"values"`
	Threshold float64          `json:"threshold"`
	Labels    []detector.Label `json:"labels"`
	Detected  bool             `json:"detected"`
}

// NewFrameRecord joins a snapshot with its classification result.
func NewFrameRecord(sessionID int64, s Snapshot, r detector.Result) *FrameRecord {
	return &FrameRecord{
		SessionID: sessionID,
		Radio:     s.Radio,
		Seq:       s.Seq,
		Timestamp: s.Timestamp,
		Values:    slices.Clone(s.Values),
		Threshold: r.Threshold,
		Labels:    slices.Clone(r.Labels),
		Detected:  r.Detected,
	}
}
