package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

// infoLine summarises the waterfall for the bottom bar, e.g.
// "LEFT ch 0-40 (2.4 GHz - 2.44 GHz); 2025-01-02 10:00:00 - 2025-01-02 10:05:00; 1,500 frames, 12 detections"
func infoLine(w *Waterfall, loc *time.Location, layout string) string {
	last := w.FirstChannel + w.NumChannels

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s ch %d-%d (%s - %s)",
		strings.ToUpper(w.Radio.String()), w.FirstChannel, last,
		humanHz(spectrum.ChannelFrequency(w.FirstChannel)), humanHz(spectrum.ChannelFrequency(last)))

	fmt.Fprintf(&sb, "; %s - %s",
		w.TimestampStart.In(loc).Format(layout), w.TimestampEnd.In(loc).Format(layout))

	fmt.Fprintf(&sb, "; %s frames, %s detections",
		humanize.Comma(int64(w.Len())), humanize.Comma(int64(w.Detections())))

	return sb.String()
}

func humanHz(hz float64) string {
	return humanize.SIWithDigits(hz, 3, "Hz")
}
