package app

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestWaterfallRenderer_Render(t *testing.T) {
	w := testWaterfall()
	r := NewWaterfallRenderer(RenderConfig{
		ColorTheme:    ClassicTheme,
		CellWidth:     4,
		CellHeight:    2,
		Overlay:       true,
		NoAnnotations: true,
	})

	img, err := r.Render(w)
	require.NoError(t, err)

	// 4 channels x 4px, detection strip on the right, 2 rows x 2px
	assert.Equal(t, image.Rect(0, 0, 4*4+detectionStripGap+detectionStripWidth, 2*2), img.Bounds())

	cm := NewColorMapper(ClassicTheme, w.Bounds())

	// quiet cell keeps its magnitude color
	assert.Equal(t, rgba(cm.GetColor(2)), img.RGBAAt(5, 0))

	// candidate cell is outlined, its inside keeps the magnitude color
	assert.Equal(t, candidateColor, img.RGBAAt(4, 2))
	assert.Equal(t, candidateColor, img.RGBAAt(7, 3))
	assert.Equal(t, rgba(cm.GetColor(12)), img.RGBAAt(5, 2))

	// interference is dimmed
	assert.NotEqual(t, rgba(cm.GetColor(9)), img.RGBAAt(9, 2))
	assert.Equal(t, rgba(dim(cm.GetColor(9))), img.RGBAAt(9, 2))

	// detection strip
	strip := 16 + detectionStripGap
	assert.Equal(t, clearColor, img.RGBAAt(strip, 0))
	assert.Equal(t, detectedColor, img.RGBAAt(strip, 2))
}

func TestWaterfallRenderer_RenderWithoutOverlay(t *testing.T) {
	w := testWaterfall()
	bounds := MagnitudeBounds{Min: 0, Max: 12}
	r := NewWaterfallRenderer(RenderConfig{
		ColorTheme:    GrayscaleTheme,
		Bounds:        &bounds,
		CellWidth:     4,
		CellHeight:    2,
		NoAnnotations: true,
	})

	img, err := r.Render(w)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(5, 2), "manual bounds put 12 at the top of the scale")
	cm := NewColorMapper(GrayscaleTheme, bounds)
	assert.Equal(t, rgba(cm.GetColor(9)), img.RGBAAt(9, 2))
}

func TestWaterfallRenderer_RenderAnnotated(t *testing.T) {
	w := NewWaterfall("left", 0)
	for seq := 1; seq <= 60; seq++ {
		w.Update(frame("left", seq, []int{1, 2, 1, 11, 1, 1, 2, 1, 1, 1}, nil))
	}

	r := NewWaterfallRenderer(RenderConfig{Location: time.UTC})
	img, err := r.Render(w)
	require.NoError(t, err)

	width := defaultLeftBorder + 10*defaultCellWidth + defaultRightBorder
	height := defaultTopBorder + 60*defaultCellHeight + defaultBottomBorder
	assert.Equal(t, image.Rect(0, 0, width, height), img.Bounds())

	// tick mark of the first channel label
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(defaultLeftBorder+defaultCellWidth/2, defaultTopBorder-1))

	var buf bytes.Buffer
	require.NoError(t, encodeImage(&buf, ImagePNG, img))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestWaterfallRenderer_RenderEmpty(t *testing.T) {
	_, err := NewWaterfallRenderer(RenderConfig{}).Render(NewWaterfall("left", 0))
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestLabelSteps(t *testing.T) {
	assert.Equal(t, 5, channelLabelStep(12))
	assert.Equal(t, 1, channelLabelStep(40))
	assert.Equal(t, 80, channelLabelStep(0))
	assert.Equal(t, 30, rowLabelStep(2))
	assert.Equal(t, 1, rowLabelStep(100))
}

func TestEncodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	var buf bytes.Buffer
	assert.NoError(t, encodeImage(&buf, ImageJPEG, img))
	assert.NotZero(t, buf.Len())
	assert.Error(t, encodeImage(&buf, "gif", img))
}
