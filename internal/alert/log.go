package alert

import (
	"context"
	"io"
	"log/slog"
)

// LogPublisher writes alerts to a logger. It is used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs alerts at warning level
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogPublisher{logger: logger.With(slog.String("component", "alert"))}
}

func (p *LogPublisher) Publish(_ context.Context, a Alert) error {
	if a.Cleared {
		p.logger.Info("drone candidate cleared", slog.String("radio", a.Radio.String()), slog.String("id", a.ID))
		return nil
	}
	p.logger.Warn("!!! DRONE !!!",
		slog.String("radio", a.Radio.String()),
		slog.Any("channels", a.Channels),
		slog.Float64("threshold", a.Threshold),
		slog.String("id", a.ID),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*MQTTPublisher)(nil)
)
