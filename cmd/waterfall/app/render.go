package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/drone-detector/internal/detector"
)

const (
	dpi            = 72.0
	fontSize       = 12.0
	tickMarkLength = 5

	pixelsPerChannelLabel = 40
	pixelsPerTimeLabel    = 60

	defaultCellWidth  = 12
	defaultCellHeight = 2

	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	detectionStripGap   = 2
	detectionStripWidth = 6

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

var (
	candidateColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	detectedColor  = color.RGBA{R: 220, G: 20, B: 60, A: 255}
	clearColor     = color.RGBA{R: 230, G: 230, B: 230, A: 255}
)

// BorderConfig defines the sizes of white space around the waterfall
type BorderConfig struct {
	Top    int // Space for the channel scale
	Left   int // Space for the time scale
	Bottom int // Space for the information bar
	Right  int // Space for the detection strip
}

// RenderConfig holds all configuration options for waterfall visualization
type RenderConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location

	FontSize   float64
	ColorTheme ColorTheme

	// Bounds overrides the magnitude range derived from the data
	Bounds *MagnitudeBounds

	CellWidth  int
	CellHeight int

	// Overlay marks candidate channels and dims interference
	Overlay       bool
	NoAnnotations bool

	BorderConfig BorderConfig
}

// WaterfallRenderer draws a Waterfall into an image
type WaterfallRenderer struct {
	config RenderConfig
}

// NewWaterfallRenderer creates a new renderer, zero values are replaced with defaults
func NewWaterfallRenderer(config RenderConfig) *WaterfallRenderer {
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.ColorTheme == "" {
		config.ColorTheme = EnhancedTheme
	}
	if config.CellWidth <= 0 {
		config.CellWidth = defaultCellWidth
	}
	if config.CellHeight <= 0 {
		config.CellHeight = defaultCellHeight
	}

	if config.NoAnnotations {
		config.BorderConfig = BorderConfig{Right: detectionStripGap + detectionStripWidth}
	} else {
		if config.BorderConfig.Top == 0 {
			config.BorderConfig.Top = defaultTopBorder
		}
		if config.BorderConfig.Left == 0 {
			config.BorderConfig.Left = defaultLeftBorder
		}
		if config.BorderConfig.Bottom == 0 {
			config.BorderConfig.Bottom = defaultBottomBorder
		}
		if config.BorderConfig.Right == 0 {
			config.BorderConfig.Right = defaultRightBorder
		}
	}

	return &WaterfallRenderer{config: config}
}

// Render creates an image of the waterfall with annotations
func (r *WaterfallRenderer) Render(w *Waterfall) (*image.RGBA, error) {
	if w.Len() == 0 || w.NumChannels == 0 {
		return nil, ErrNoFrames
	}

	area := r.spectrumArea(w)
	img := image.NewRGBA(image.Rect(0, 0, area.Max.X+r.config.BorderConfig.Right, area.Max.Y+r.config.BorderConfig.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	bounds := w.Bounds()
	if r.config.Bounds != nil {
		bounds = *r.config.Bounds
	}
	colorMap := NewColorMapper(r.config.ColorTheme, bounds)

	if !r.config.NoAnnotations {
		ann, err := newAnnotator(annotatorConfig{
			TimeFormat:     r.config.TimeFormat,
			DatetimeFormat: r.config.DatetimeFormat,
			Location:       r.config.Location,
			FontSize:       r.config.FontSize,
			Borders:        r.config.BorderConfig,
			CellWidth:      r.config.CellWidth,
			CellHeight:     r.config.CellHeight,
		})
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, w); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderWaterfall(img, area, w, colorMap)
	r.renderDetections(img, area, w)

	return img, nil
}

func (r *WaterfallRenderer) spectrumArea(w *Waterfall) image.Rectangle {
	left, top := r.config.BorderConfig.Left, r.config.BorderConfig.Top
	return image.Rect(left, top, left+w.NumChannels*r.config.CellWidth, top+w.Len()*r.config.CellHeight)
}

func (r *WaterfallRenderer) cell(area image.Rectangle, row, channel int) image.Rectangle {
	x := area.Min.X + channel*r.config.CellWidth
	y := area.Min.Y + row*r.config.CellHeight
	return image.Rect(x, y, x+r.config.CellWidth, y+r.config.CellHeight)
}

func (r *WaterfallRenderer) renderWaterfall(img *image.RGBA, area image.Rectangle, w *Waterfall, colorMap *ColorMapper) {
	for y, row := range w.Rows {
		for ch := 0; ch < w.NumChannels; ch++ {
			c := colorMap.GetColor(row.Value(ch))
			label := row.Label(ch)
			if r.config.Overlay && label == detector.Interference {
				c = dim(c)
			}

			rect := r.cell(area, y, ch)
			draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)

			if r.config.Overlay && label == detector.Candidate && r.config.CellWidth > 2 {
				for py := rect.Min.Y; py < rect.Max.Y; py++ {
					img.Set(rect.Min.X, py, candidateColor)
					img.Set(rect.Max.X-1, py, candidateColor)
				}
			}
		}
	}
}

// renderDetections draws a strip right of the waterfall marking every frame
// that carried at least one candidate channel
func (r *WaterfallRenderer) renderDetections(img *image.RGBA, area image.Rectangle, w *Waterfall) {
	x := area.Max.X + detectionStripGap
	for y, row := range w.Rows {
		c := clearColor
		if row.Detected {
			c = detectedColor
		}
		py := area.Min.Y + y*r.config.CellHeight
		rect := image.Rect(x, py, x+detectionStripWidth, py+r.config.CellHeight)
		draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
	}
}

// dim halves the brightness of c
func dim(c color.Color) color.Color {
	r, g, b, a := c.RGBA()
	return color.RGBA64{R: uint16(r / 2), G: uint16(g / 2), B: uint16(b / 2), A: uint16(a)}
}

type annotatorConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	Borders        BorderConfig
	CellWidth      int
	CellHeight     int
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, w *Waterfall) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, *Waterfall) error
	}{
		{"drawing channel scale", a.drawChannelScale},
		{"drawing time scale", a.drawTimeScale},
		{"drawing info bar", a.drawInfoBar},
	}
	for _, op := range ops {
		if err := op.fn(img, w); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}
	return nil
}

func (a *annotator) drawChannelScale(img *image.RGBA, w *Waterfall) error {
	step := channelLabelStep(a.config.CellWidth)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := a.config.Borders.Top - tickMarkLength - fontHeight/2

	for ch := 0; ch < w.NumChannels; ch += step {
		x := a.config.Borders.Left + ch*a.config.CellWidth + a.config.CellWidth/2

		for y := a.config.Borders.Top - tickMarkLength; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%d", w.FirstChannel+ch)
		width := font.MeasureString(a.fontFace, label)
		if _, err := a.context.DrawString(label, freetype.Pt(x-width.Round()/2, textY)); err != nil {
			return fmt.Errorf("drawing channel label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, w *Waterfall) error {
	step := rowLabelStep(a.config.CellHeight)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for i := 0; i < w.Len(); i += step {
		imgY := a.config.Borders.Top + i*a.config.CellHeight

		for x := a.config.Borders.Left - tickMarkLength; x < a.config.Borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		textY := imgY + fontHeight/2 - metrics.Descent.Round()
		label := w.Rows[i].Timestamp.In(a.config.Location).Format(a.config.TimeFormat)
		if _, err := a.context.DrawString(label, freetype.Pt(5, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, w *Waterfall) error {
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	info := infoLine(w, a.config.Location, a.config.DatetimeFormat)
	if _, err := a.context.DrawString(info, freetype.Pt(a.config.Borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// channelLabelStep picks the smallest channel step that keeps labels apart
func channelLabelStep(cellWidth int) int {
	for _, step := range []int{1, 2, 5, 10, 20, 40} {
		if step*cellWidth >= pixelsPerChannelLabel {
			return step
		}
	}
	return 80
}

func rowLabelStep(cellHeight int) int {
	return max(1, (pixelsPerTimeLabel+cellHeight-1)/cellHeight)
}
