// Package acquisition turns the line-oriented output of the scanner firmware
// into per-radio frames of fixed length and publishes the latest frame of each
// radio for the detector to consume.
package acquisition

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

const (
	// ParseErrorsThreshold is the default number of consecutive bad lines
	// tolerated before the reader gives up. Zero disables the limit.
	ParseErrorsThreshold = 0

	maxLineLength = 64 * 1024
)

var (
	// ErrTooManyParseErrors is returned when the number of consecutive parse errors exceeds the threshold
	ErrTooManyParseErrors = errors.New("too many consecutive parse errors")

	// ErrBrokenPipe is returned when reading from the source fails
	ErrBrokenPipe = errors.New("broken pipe")
)

// Observer receives acquisition events, e.g. for metrics.
type Observer interface {
	ObserveLine(radio spectrum.Radio)
	ObserveParseError(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveLine(spectrum.Radio) {}
func (nopObserver) ObserveParseError(string)   {}

// WithLogger sets the logger for the reader
func WithLogger(logger *slog.Logger) func(r *Reader) {
	return func(r *Reader) {
		r.logger = logger.With(slog.String("component", "acquisition"))
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive parse errors
func WithParseErrorsThreshold(threshold uint) func(r *Reader) {
	return func(r *Reader) {
		r.parseErrorsThreshold = threshold
	}
}

// WithObserver sets the observer notified about every line read
func WithObserver(o Observer) func(r *Reader) {
	return func(r *Reader) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithClock overrides the source of frame timestamps
func WithClock(now func() time.Time) func(r *Reader) {
	return func(r *Reader) {
		r.now = now
	}
}

// Reader scans lines from a source, parses them and publishes the resulting
// frames into a FrameBuffer. It is the single writer of that buffer.
type Reader struct {
	src    io.Reader
	buffer *FrameBuffer

	parseErrorsThreshold uint
	observer             Observer
	logger               *slog.Logger
	now                  func() time.Time
}

// NewReader creates a new Reader with a discard logger
func NewReader(src io.Reader, buffer *FrameBuffer, options ...func(r *Reader)) *Reader {
	r := Reader{
		src:                  src,
		buffer:               buffer,
		parseErrorsThreshold: ParseErrorsThreshold,
		observer:             nopObserver{},
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:                  time.Now,
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Run reads the source until it is exhausted, fails, or ctx is cancelled.
// Malformed lines are logged and skipped. A cancelled context is not an error.
func (r *Reader) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	// the blocking Scan runs in its own goroutine so that the loop below can
	// react to cancellation; the owner of src unblocks it by closing src
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r.src)
		scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	r.logger.Info("starting frames collection...")
	defer r.logger.Info("frames collection stopped")

	var parseErrors uint
	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
					return fmt.Errorf("%w: error reading source: %w", ErrBrokenPipe, err)
				}
				return nil
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if err := r.handleLine(line); err != nil {
				parseErrors++
				r.logger.Debug(fmt.Sprintf("skipping line: %s", err.Error()), slog.String("line", line))

				if r.parseErrorsThreshold > 0 && parseErrors >= r.parseErrorsThreshold {
					return ErrTooManyParseErrors
				}
				continue
			}

			parseErrors = 0 // reset counter
		}
	}
}

func (r *Reader) handleLine(line string) error {
	label, values, err := ParseLine(line)
	if err != nil {
		r.observer.ObserveParseError("malformed")
		return err
	}

	snapshot, err := r.buffer.Publish(label, values, r.now())
	if err != nil {
		r.observer.ObserveParseError("unknown_label")
		return err
	}

	r.observer.ObserveLine(snapshot.Radio)
	return nil
}
