package app

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

func TestNewConfigFromCLI(t *testing.T) {
	c, err := NewConfigFromCLI([]string{
		"--db", "session.sqlite",
		"-s", "3",
		"-r", "RIGHT",
		"-o", "out/waterfall",
		"-f", "JPEG",
		"--theme", "thermal",
		"--tz", "UTC",
		"--start", "2025-03-01T10:00:00Z",
		"--detected-only",
		"--first-channel", "40",
		"--max-magnitude", "20",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "session.sqlite", c.DBPath)
	assert.Equal(t, int64(3), c.SessionID)
	assert.Equal(t, spectrum.Radio("right"), c.Radio)
	assert.Equal(t, "out/waterfall.jpeg", c.OutputFile)
	assert.Equal(t, ImageJPEG, c.Format)
	assert.Equal(t, ThermalTheme, c.Theme)
	assert.Equal(t, time.UTC, c.TimeZone)
	assert.True(t, c.DetectedOnly)
	require.NotNil(t, c.MinTimestamp)
	assert.True(t, c.MinTimestamp.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Nil(t, c.MaxTimestamp)
	require.NotNil(t, c.FirstChannel)
	assert.Equal(t, 40, *c.FirstChannel)
	assert.Nil(t, c.MinMagnitude)
	assert.Equal(t, &MagnitudeBounds{Min: 0, Max: 20}, c.magnitudeBounds())
}

func TestNewConfigFromCLI_Defaults(t *testing.T) {
	c, err := NewConfigFromCLI([]string{"--db", "x.sqlite", "-o", "out"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, int64(1), c.SessionID)
	assert.Equal(t, DefaultRadio, c.Radio)
	assert.Equal(t, "out.png", c.OutputFile)
	assert.Equal(t, EnhancedTheme, c.Theme)
	assert.Nil(t, c.FirstChannel)
	assert.Nil(t, c.magnitudeBounds())
	assert.Equal(t, defaultCellWidth, c.CellWidth)
}

func TestNewConfigFromCLI_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing db", []string{"-o", "out"}, "db path is required"},
		{"missing output", []string{"--db", "x"}, "output file is required"},
		{"bad session", []string{"--db", "x", "-o", "out", "-s", "0"}, "session id is required"},
		{"bad format", []string{"--db", "x", "-o", "out", "-f", "gif"}, "invalid image format: gif"},
		{"bad theme", []string{"--db", "x", "-o", "out", "-t", "rainbow"}, "unknown color theme"},
		{"bad start", []string{"--db", "x", "-o", "out", "--start", "yesterday"}, "invalid start time"},
		{"bad zone", []string{"--db", "x", "-o", "out", "--tz", "Mars/Olympus"}, "invalid time zone"},
		{"bad cell", []string{"--db", "x", "-o", "out", "--cell-width", "0"}, "cell size must be positive"},
		{"bad bounds", []string{"--db", "x", "-o", "out", "--min-magnitude", "20"}, "min magnitude 20 must be below max magnitude 15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			var err error
			require.NotPanics(t, func() {
				_, err = NewConfigFromCLI(tt.args, &out)
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, out.String(), "Usage: waterfall")
			assert.Contains(t, out.String(), "--db")
		})
	}
}

func TestNewConfigFromCLI_Help(t *testing.T) {
	_, err := NewConfigFromCLI([]string{"--help"}, io.Discard)
	assert.ErrorIs(t, err, pflag.ErrHelp)
}
