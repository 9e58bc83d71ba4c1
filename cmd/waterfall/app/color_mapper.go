package app

import (
	"fmt"
	"image/color"
	"math"
)

// ColorTheme represents a predefined color scheme for magnitude visualization
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
	JungleTheme    ColorTheme = "jungle"    // Dark green to yellow transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	MarineTheme    ColorTheme = "marine"    // Deep blue to cyan to white
	EnhancedTheme  ColorTheme = "enhanced"  // Black to blue to cyan to yellow to red

	DefaultColorMapSize = 64
)

var colorThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	JungleTheme:    {},
	ThermalTheme:   {},
	MarineTheme:    {},
	EnhancedTheme:  {},
}

// ParseColorTheme validates a theme name
func ParseColorTheme(name string) (ColorTheme, error) {
	theme := ColorTheme(name)
	if _, ok := colorThemes[theme]; !ok {
		return "", fmt.Errorf("unknown color theme: %s", name)
	}
	return theme, nil
}

// ColorMapper maps channel magnitudes onto a pre-computed gradient
type ColorMapper struct {
	colorMap    []color.Color
	theme       func(float64) color.Color
	themeName   ColorTheme
	size        int
	boundsMin   float64
	boundsRange float64
}

// NewColorMapper creates a new color mapper with specified theme and bounds
func NewColorMapper(theme ColorTheme, bounds MagnitudeBounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a new color mapper with a gradient of size colors
func NewColorMapperWithSize(theme ColorTheme, bounds MagnitudeBounds, size int) *ColorMapper {
	if size < 2 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:  make([]color.Color, size),
		theme:     getColorTheme(theme),
		themeName: theme,
		size:      size,
	}
	for i := 0; i < size; i++ {
		cm.colorMap[i] = cm.theme(float64(i) / float64(size-1))
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds changes the magnitude range the gradient is stretched over
func (cm *ColorMapper) UpdateBounds(bounds MagnitudeBounds) {
	cm.boundsMin = float64(bounds.Min)
	cm.boundsRange = float64(bounds.Max - bounds.Min)
}

// GetColor returns the color of a magnitude, clamped to the bounds
func (cm *ColorMapper) GetColor(magnitude int) color.Color {
	if cm.boundsRange <= 0 {
		return cm.colorMap[0]
	}

	normalized := (float64(magnitude) - cm.boundsMin) / cm.boundsRange
	index := int(math.Round(normalized * float64(cm.size-1)))

	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= cm.size {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[index]
}

// ThemeName returns the current color theme name
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}

// HSV represents a color in HSV (Hue, Saturation, Value) color space
type HSV struct {
	H float64 // Hue angle in degrees [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value/Brightness [0-1]
}

// RGB converts HSV to RGB color space
func (hsv HSV) RGB() color.Color {
	v := clampUnit(hsv.V)
	if hsv.S <= 0.0 {
		g := uint8(v * 255)
		return color.RGBA{R: g, G: g, B: g, A: 255}
	}
	s := clampUnit(hsv.S)

	h := math.Mod(hsv.H, 360)
	if h < 0 {
		h += 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)

	vb := uint8(v * 255)
	p := uint8((v * (1 - s)) * 255)
	q := uint8((v * (1 - (s * f))) * 255)
	t := uint8((v * (1 - (s * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: vb, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: vb, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: vb, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: vb, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: vb, A: 255}
	default:
		return color.RGBA{R: vb, G: p, B: q, A: 255}
	}
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(m float64) color.Color {
			return HSV{H: 240 - (m * 240), S: 0.9 + (m * 0.1), V: math.Pow(m, 0.7)}.RGB()
		}

	case GrayscaleTheme:
		return func(m float64) color.Color {
			v := uint8(math.Pow(m, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}

	case JungleTheme:
		return func(m float64) color.Color {
			return HSV{H: 120 - (m * 60), S: 1.0, V: 0.3 + (math.Pow(m, 0.6) * 0.7)}.RGB()
		}

	case ThermalTheme:
		return func(m float64) color.Color {
			switch {
			case m < 1.0/3:
				return color.RGBA{R: uint8(m * 3 * 255), A: 255}
			case m < 2.0/3:
				return color.RGBA{R: 255, G: uint8((m - 1.0/3) * 3 * 255), A: 255}
			default:
				return color.RGBA{R: 255, G: 255, B: uint8(clampUnit((m-2.0/3)*3) * 255), A: 255}
			}
		}

	case MarineTheme:
		return func(m float64) color.Color {
			return HSV{H: 240 - (m * 60), S: 1.0 - (m * 0.8), V: 0.3 + (math.Pow(m, 0.6) * 0.7)}.RGB()
		}

	default:
		return func(m float64) color.Color {
			enhanced := math.Pow(m, 0.7)

			switch {
			case m < 0.25:
				return HSV{H: 240, S: 1.0, V: enhanced * 4}.RGB()
			case m < 0.5:
				return HSV{H: 240 - ((m - 0.25) * 240), S: 1.0, V: enhanced * 1.5}.RGB()
			case m < 0.75:
				return HSV{H: 180 - ((m - 0.5) * 4 * 120), S: 1.0, V: enhanced * 1.5}.RGB()
			default:
				return HSV{H: 60 - ((m - 0.75) * 4 * 60), S: 1.0, V: 1.0}.RGB()
			}
		}
	}
}
