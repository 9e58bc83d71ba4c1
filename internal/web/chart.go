package web

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/roman-kulish/drone-detector/internal/detector"
	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

const (
	DefaultYAxisMax = 15

	candidateColor    = "red"
	interferenceColor = "lightgray"
	defaultQuietColor = "cyan"
)

func channelAxis(first, n int) []string {
	axis := make([]string, n)
	for i := range axis {
		ch := first + i
		axis[i] = fmt.Sprintf("%d (%s)", ch, humanize.SIWithDigits(spectrum.ChannelFrequency(ch), 3, "Hz"))
	}
	return axis
}

func barColor(s Status, l detector.Label) string {
	switch l {
	case detector.Candidate:
		return candidateColor
	case detector.Interference:
		return interferenceColor
	default:
		if s.Color != "" {
			return s.Color
		}
		return defaultQuietColor
	}
}

func newRadioChart(s Status, yMax int) *charts.Bar {
	data := make([]opts.BarData, len(s.Values))
	for i, v := range s.Values {
		label := detector.Quiet
		if i < len(s.Labels) {
			label = s.Labels[i]
		}
		data[i] = opts.BarData{
			Name:      label.String(),
			Value:     v,
			ItemStyle: &opts.ItemStyle{Color: barColor(s, label)},
		}
	}

	subtitle := "waiting for data"
	if s.Seq > 0 {
		subtitle = fmt.Sprintf("frame %s | %s | mean %.1f σ %.1f peak %d",
			humanize.Comma(int64(s.Seq)), s.Timestamp.Format("15:04:05.000"), s.Stats.Mean, s.Stats.StdDev, s.Stats.Peak)
	}

	titleColor := "#e0e0e0"
	if s.Detected {
		titleColor = candidateColor
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Drone Detector", Theme: "dark", Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: subtitle, TitleStyle: &opts.TextStyle{Color: titleColor}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: yMax, Name: "magnitude"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "channel"}),
	)
	bar.SetXAxis(channelAxis(s.FirstChannel, len(s.Values))).
		AddSeries(string(s.Name), data)

	return bar
}

// renderPage writes an HTML page with one chart per radio
func renderPage(w io.Writer, statuses []Status, yMax int) error {
	page := components.NewPage()
	for _, s := range statuses {
		page.AddCharts(newRadioChart(s, yMax))
	}
	return page.Render(w)
}
