package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
	"github.com/roman-kulish/drone-detector/internal/storage"
)

// storedSession mirrors the part of the detector configuration recorded with
// every session that the renderer needs
type storedSession struct {
	Config struct {
		Radios []struct {
			Name         string `json:"name"`
			FirstChannel int    `json:"firstChannel"`
		} `json:"radios"`
	} `json:"config"`
}

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	w, err := readWaterfall(ctx, store, config, logger)
	if err != nil {
		return err
	}

	renderer := NewWaterfallRenderer(RenderConfig{
		Location:      config.TimeZone,
		ColorTheme:    config.Theme,
		Bounds:        config.magnitudeBounds(),
		CellWidth:     config.CellWidth,
		CellHeight:    config.CellHeight,
		Overlay:       !config.NoOverlay,
		NoAnnotations: config.NoAnnotations,
	})

	logger.Info("rendering waterfall",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("rows", w.Len()),
			slog.Int("channels", w.NumChannels),
		))

	img, err := renderer.Render(w)
	if err != nil {
		return fmt.Errorf("rendering waterfall: %w", err)
	}

	return writeImage(config.OutputFile, config.Format, img)
}

func readWaterfall(ctx context.Context, store *storage.SqliteStore, config *Config, logger *slog.Logger) (*Waterfall, error) {
	opts := []storage.ReaderOption{storage.WithRadio(config.Radio)}
	filters := []any{slog.String("radio", config.Radio.String())}

	switch {
	case config.MinTimestamp != nil && config.MaxTimestamp != nil:
		opts = append(opts, storage.WithTimeRange(config.MinTimestamp.UTC(), config.MaxTimestamp.UTC()))
		filters = append(filters,
			slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)),
			slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))

	case config.MinTimestamp != nil:
		opts = append(opts, storage.WithStartTime(config.MinTimestamp.UTC()))
		filters = append(filters, slog.String("minTimestamp", config.MinTimestamp.UTC().Format(time.DateTime)))

	case config.MaxTimestamp != nil:
		opts = append(opts, storage.WithEndTime(config.MaxTimestamp.UTC()))
		filters = append(filters, slog.String("maxTimestamp", config.MaxTimestamp.UTC().Format(time.DateTime)))
	}

	if config.DetectedOnly {
		opts = append(opts, storage.WithDetectedOnly())
		filters = append(filters, slog.Bool("detectedOnly", true))
	}

	logger.Info("reader configuration", filters...)

	iter, err := store.ReadFrames(ctx, config.SessionID, opts...)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	firstChannel := 0
	if config.FirstChannel != nil {
		firstChannel = *config.FirstChannel
	} else if ch, ok := sessionFirstChannel(iter.Session(), config.Radio); ok {
		firstChannel = ch
	}

	logger.Info("reading frames", slog.String("count", humanize.Comma(int64(iter.Len()))))

	w := NewWaterfall(config.Radio, firstChannel)
	for iter.Next(ctx) {
		w.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return nil, err
	}

	bounds := w.Bounds()
	logger.Info("finished reading frames",
		slog.Group("stats",
			slog.String("minTimestamp", w.TimestampStart.Local().Format(time.DateTime)),
			slog.String("maxTimestamp", w.TimestampEnd.Local().Format(time.DateTime)),
			slog.Int("firstChannel", w.FirstChannel),
			slog.Int("channels", w.NumChannels),
			slog.Int("minMagnitude", bounds.Min),
			slog.Int("maxMagnitude", bounds.Max),
			slog.Int("detections", w.Detections()),
		))

	return w, nil
}

// sessionFirstChannel looks up the channel offset of radio in the
// configuration recorded with the session
func sessionFirstChannel(session *spectrum.Session, radio spectrum.Radio) (int, bool) {
	if session == nil || session.Config == nil {
		return 0, false
	}

	var stored storedSession
	if err := json.Unmarshal([]byte(*session.Config), &stored); err != nil {
		return 0, false
	}
	for _, r := range stored.Config.Radios {
		if spectrum.Radio(r.Name) == radio {
			return r.FirstChannel, true
		}
	}
	return 0, false
}
