package app

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	DefaultRadio = spectrum.Radio("left")

	timestampLayout = time.RFC3339
)

type ImageFormat string

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

// Config holds the settings of a single render
type Config struct {
	DBPath       string
	SessionID    int64
	Radio        spectrum.Radio
	OutputFile   string
	Format       ImageFormat
	Theme        ColorTheme
	TimeZone     *time.Location
	DetectedOnly bool
	MinTimestamp *time.Time
	MaxTimestamp *time.Time

	// FirstChannel overrides the channel offset stored with the session; nil
	// means use the session configuration
	FirstChannel *int

	MinMagnitude  *int
	MaxMagnitude  *int
	CellWidth     int
	CellHeight    int
	NoOverlay     bool
	NoAnnotations bool
	Verbose       bool
}

// NewConfig returns a Config with defaults
func NewConfig() *Config {
	return &Config{
		Radio:      DefaultRadio,
		Format:     ImagePNG,
		Theme:      EnhancedTheme,
		TimeZone:   time.Local,
		CellWidth:  defaultCellWidth,
		CellHeight: defaultCellHeight,
	}
}

// NewConfigFromCLI parses command line arguments, args excludes the program name
func NewConfigFromCLI(args []string, output io.Writer) (*Config, error) {
	c := NewConfig()

	fs := pflag.NewFlagSet("waterfall", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		_, _ = fmt.Fprintln(output, "Usage: waterfall --db <path> -o <output> [flags]")
		fs.PrintDefaults()
	}

	var (
		radio, imageFormat, theme, tz, start, end string
		firstChannel, minMagnitude, maxMagnitude  int
	)
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64VarP(&c.SessionID, "session", "s", 1, "Session ID")
	fs.StringVarP(&radio, "radio", "r", string(DefaultRadio), "Radio to render, e.g. left or right")
	fs.StringVarP(&c.OutputFile, "output", "o", "", "Path to the output file, without extension")
	fs.StringVarP(&imageFormat, "format", "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVarP(&theme, "theme", "t", string(EnhancedTheme), "Color theme. [classic, grayscale, jungle, thermal, marine, enhanced]")
	fs.StringVar(&tz, "tz", "Local", "Time zone of the time scale, e.g. UTC or Australia/Sydney")
	fs.StringVar(&start, "start", "", "Render frames at or after this time (RFC 3339)")
	fs.StringVar(&end, "end", "", "Render frames at or before this time (RFC 3339)")
	fs.BoolVar(&c.DetectedOnly, "detected-only", false, "Render only frames with a candidate channel")
	fs.IntVar(&firstChannel, "first-channel", 0, "Number of the first channel of the radio, overrides the session configuration")
	fs.IntVar(&minMagnitude, "min-magnitude", 0, "Define a manual minimum magnitude")
	fs.IntVar(&maxMagnitude, "max-magnitude", DefaultMaxMagnitude, "Define a manual maximum magnitude")
	fs.IntVar(&c.CellWidth, "cell-width", defaultCellWidth, "Width of a channel in pixels")
	fs.IntVar(&c.CellHeight, "cell-height", defaultCellHeight, "Height of a frame in pixels")
	fs.BoolVar(&c.NoOverlay, "no-overlay", false, "Do not mark candidate and interference channels")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and channel scales")
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "Enable more verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "first-channel":
			c.FirstChannel = &firstChannel
		case "min-magnitude":
			c.MinMagnitude = &minMagnitude
		case "max-magnitude":
			c.MaxMagnitude = &maxMagnitude
		}
	})

	c.Radio = spectrum.Radio(strings.ToLower(strings.TrimSpace(radio)))
	c.Format = ImageFormat(strings.ToLower(imageFormat))

	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.SessionID <= 0 {
		errs = append(errs, errors.New("session id is required"))
	}
	if c.Radio == "" {
		errs = append(errs, errors.New("radio is required"))
	}
	if c.OutputFile == "" {
		errs = append(errs, errors.New("output file is required"))
	}
	if _, ok := validImageFormats[c.Format]; !ok {
		errs = append(errs, fmt.Errorf("invalid image format: %s", imageFormat))
	}
	if c.CellWidth <= 0 || c.CellHeight <= 0 {
		errs = append(errs, errors.New("cell size must be positive"))
	}
	if b := c.magnitudeBounds(); b != nil && b.Min >= b.Max {
		errs = append(errs, fmt.Errorf("min magnitude %d must be below max magnitude %d", b.Min, b.Max))
	}

	var err error
	if c.Theme, err = ParseColorTheme(strings.ToLower(theme)); err != nil {
		errs = append(errs, err)
	}
	if c.TimeZone, err = time.LoadLocation(tz); err != nil {
		errs = append(errs, fmt.Errorf("invalid time zone: %w", err))
	}
	if c.MinTimestamp, err = parseTimestamp(start); err != nil {
		errs = append(errs, fmt.Errorf("invalid start time: %w", err))
	}
	if c.MaxTimestamp, err = parseTimestamp(end); err != nil {
		errs = append(errs, fmt.Errorf("invalid end time: %w", err))
	}

	if err = errors.Join(errs...); err != nil {
		fs.Usage()
		return nil, err
	}

	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

func parseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// magnitudeBounds returns the manual bounds, nil when none were given
func (c *Config) magnitudeBounds() *MagnitudeBounds {
	if c.MinMagnitude == nil && c.MaxMagnitude == nil {
		return nil
	}
	b := MagnitudeBounds{Min: 0, Max: DefaultMaxMagnitude}
	if c.MinMagnitude != nil {
		b.Min = *c.MinMagnitude
	}
	if c.MaxMagnitude != nil {
		b.Max = *c.MaxMagnitude
	}
	return &b
}
