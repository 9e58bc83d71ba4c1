package detector

import (
	"errors"
	"fmt"
)

const (
	// DefaultSensitivity is how many units above the median a channel must rise
	// before it is considered active.
	DefaultSensitivity = 4.0

	// DefaultWindowRadius is the number of neighbouring channels inspected on
	// each side of an active channel.
	DefaultWindowRadius = 2

	// DefaultWidthLimit is the number of elevated channels within the window
	// at which a signal is treated as broadband interference.
	DefaultWidthLimit = 5

	// DefaultMarginBelowThreshold relaxes the threshold for neighbours so that
	// the shoulders of a broad signal still count towards its width.
	DefaultMarginBelowThreshold = 2.0

	// EmptyFrameFloor is returned by EstimateFloor for an empty frame.
	EmptyFrameFloor = 15.0
)

// ErrInvalidParams is returned when classification parameters are out of range
var ErrInvalidParams = errors.New("invalid detector parameters")

// Params holds the tunable constants of the noise-floor estimator and the
// spatial classifier.
type Params struct {
	Sensitivity          float64 `yaml:"sensitivity" json:"sensitivity"`
	WindowRadius         int     `yaml:"windowRadius" json:"windowRadius"`
	WidthLimit           int     `yaml:"widthLimit" json:"widthLimit"`
	MarginBelowThreshold float64 `yaml:"marginBelowThreshold" json:"marginBelowThreshold"`
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		Sensitivity:          DefaultSensitivity,
		WindowRadius:         DefaultWindowRadius,
		WidthLimit:           DefaultWidthLimit,
		MarginBelowThreshold: DefaultMarginBelowThreshold,
	}
}

// Validate checks that the parameters describe a usable classifier.
func (p Params) Validate() error {
	switch {
	case p.Sensitivity < 0:
		return fmt.Errorf("%w: sensitivity %.2f must not be negative", ErrInvalidParams, p.Sensitivity)
	case p.WindowRadius < 0:
		return fmt.Errorf("%w: window radius %d must not be negative", ErrInvalidParams, p.WindowRadius)
	case p.WidthLimit < 1:
		return fmt.Errorf("%w: width limit %d must be at least 1", ErrInvalidParams, p.WidthLimit)
	case p.MarginBelowThreshold < 0:
		return fmt.Errorf("%w: margin %.2f must not be negative", ErrInvalidParams, p.MarginBelowThreshold)
	}
	return nil
}
