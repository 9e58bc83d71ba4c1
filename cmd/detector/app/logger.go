package app

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// NewLogger builds the process logger from the settings
func NewLogger(s Settings, w io.Writer) (*slog.Logger, error) {
	level, err := s.Level()
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch s.LogFormat {
	case LogFormatText, "":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	case LogFormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	case LogFormatPretty:
		handler = charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Level:           charmlog.Level(level),
		})

	default:
		return nil, fmt.Errorf("invalid log format %q", s.LogFormat)
	}

	return slog.New(handler), nil
}
