package detector

import (
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the magnitudes of a frame for display and metrics.
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Median float64 `json:"median"`
	Peak   int     `json:"peak"`
	PeakAt int     `json:"peakAt"` // index of the first channel holding Peak, -1 for an empty frame
}

// Summarize computes frame statistics. It is independent from classification.
func Summarize(frame []int) Stats {
	if len(frame) == 0 {
		return Stats{PeakAt: -1}
	}

	values := make([]float64, len(frame))
	peakAt := 0
	for i, v := range frame {
		values[i] = float64(v)
		if v > frame[peakAt] {
			peakAt = i
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0 // unbiased estimator is undefined for a single sample
	}

	return Stats{
		Mean:   mean,
		StdDev: std,
		Median: median(frame),
		Peak:   frame[peakAt],
		PeakAt: peakAt,
	}
}
