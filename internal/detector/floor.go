package detector

import "slices"

// EstimateFloor computes the detection threshold for a frame: the median of
// its magnitudes plus sensitivity. The median keeps a minority of strong
// channels from inflating the baseline. An empty frame yields EmptyFrameFloor.
func EstimateFloor(frame []int, sensitivity float64) float64 {
	if len(frame) == 0 {
		return EmptyFrameFloor
	}
	return median(frame) + sensitivity
}

// median returns the middle value of the frame, averaging the two middle
// values for even lengths. The input is not modified.
func median(frame []int) float64 {
	sorted := slices.Clone(frame)
	slices.Sort(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
}
