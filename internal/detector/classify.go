package detector

// Classify labels every channel of the frame against threshold.
//
// A channel at or below threshold is Quiet. For a channel above it, the
// window [i-WindowRadius, i+WindowRadius] clamped to the frame bounds is
// inspected, and every channel in it above threshold-MarginBelowThreshold is
// counted. Reaching WidthLimit marks the channel as Interference, anything
// narrower is a Candidate.
//
// The window test always reads the raw frame, never labels computed earlier in
// the same pass, so the result does not depend on evaluation order. Channels
// near the edges see a smaller window and are therefore classified as
// Candidate more readily.
//
// A negative WindowRadius is treated as zero.
//
// The second return value reports whether any channel is a Candidate.
func Classify(frame []int, threshold float64, p Params) ([]Label, bool) {
	n := len(frame)
	labels := make([]Label, n)
	relaxed := threshold - p.MarginBelowThreshold
	radius := max(0, p.WindowRadius)

	var detected bool
	for i, v := range frame {
		if float64(v) <= threshold {
			continue // Quiet is the zero value
		}

		start := max(0, i-radius)
		end := min(n, i+radius+1)

		var nearbyHigh int
		for _, x := range frame[start:end] {
			if float64(x) > relaxed {
				nearbyHigh++
			}
		}

		if nearbyHigh >= p.WidthLimit {
			labels[i] = Interference
			continue
		}

		labels[i] = Candidate
		detected = true
	}

	return labels, detected
}
