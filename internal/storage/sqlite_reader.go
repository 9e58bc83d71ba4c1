package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roman-kulish/drone-detector/internal/spectrum"
)

// ErrNoData indicates either that no frames exist for the given parameters,
// or that all available frames have been read from the frame reader.
var ErrNoData = fmt.Errorf("no data available")

// FrameReader provides an iterator-based interface for reading stored frames
// with optional radio, time and detection filtering.
type FrameReader interface {
	// Session returns metadata about the session this reader is accessing.
	Session() *spectrum.Session

	// Len returns the number of frames matching the filters.
	Len() int

	// Next advances the iterator and returns true if there is another frame
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current frame in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *spectrum.FrameRecord

	// Error returns any error that occurred during iteration.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}

var _ FrameReader = (*SqliteFrameReader)(nil)

// ReaderOption configures a FrameReader with specific filtering criteria.
type ReaderOption func(*SqliteFrameReader)

// WithRadio limits the reader to frames of a single radio.
func WithRadio(radio spectrum.Radio) ReaderOption {
	return func(r *SqliteFrameReader) {
		r.radio = &radio
	}
}

// WithStartTime sets the start time filter for the frame reader.
// Frames with timestamps before this time will be excluded.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SqliteFrameReader) {
		t = t.UTC()
		r.startTime = &t
	}
}

// WithEndTime sets the end time filter for the frame reader.
// Frames with timestamps after this time will be excluded.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SqliteFrameReader) {
		t = t.UTC()
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SqliteFrameReader) {
		WithStartTime(startTime)(r)
		WithEndTime(endTime)(r)
	}
}

// WithDetectedOnly limits the reader to frames in which a candidate was detected.
func WithDetectedOnly() ReaderOption {
	return func(r *SqliteFrameReader) {
		r.detectedOnly = true
	}
}

func newSqliteFrameReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteFrameReader, error) {
	fr := &SqliteFrameReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(fr)
	}
	if err := fr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return fr, nil
}

// SqliteFrameReader implements FrameReader for SQLite database backend.
type SqliteFrameReader struct {
	db *sql.DB

	sessionID int64
	session   *spectrum.Session
	count     int

	radio        *spectrum.Radio // Optional radio filter
	startTime    *time.Time      // Optional start of time range filter
	endTime      *time.Time      // Optional end of time range filter
	detectedOnly bool

	where string
	args  []any

	current *spectrum.FrameRecord
	rows    *sql.Rows
	err     error
}

func (fr *SqliteFrameReader) init(ctx context.Context) error {
	if fr.db == nil {
		return errors.New("database connection required")
	}
	if fr.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: fr.loadSession},
		{msg: "initializing filters", fn: fr.initFilters},
		{msg: "counting frames", fn: fr.countFrames},
		{msg: "initializing query", fn: fr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (fr *SqliteFrameReader) loadSession(ctx context.Context) (err error) {
	fr.session, err = loadSession(ctx, fr.db, fr.sessionID)
	return
}

func (fr *SqliteFrameReader) initFilters(context.Context) error {
	if fr.startTime != nil && fr.endTime != nil && fr.startTime.After(*fr.endTime) {
		return fmt.Errorf("start time %s is after end time %s", fr.startTime, fr.endTime)
	}

	conditions := []string{"session_id = ?"}
	fr.args = []any{fr.sessionID}

	if fr.radio != nil {
		conditions = append(conditions, "radio = ?")
		fr.args = append(fr.args, string(*fr.radio))
	}
	if fr.startTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		fr.args = append(fr.args, *fr.startTime)
	}
	if fr.endTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		fr.args = append(fr.args, *fr.endTime)
	}
	if fr.detectedOnly {
		conditions = append(conditions, "detected = 1")
	}

	fr.where = " WHERE " + strings.Join(conditions, " AND ")
	return nil
}

func (fr *SqliteFrameReader) countFrames(ctx context.Context) error {
	if err := fr.db.QueryRowContext(ctx, countFramesSQL+fr.where, fr.args...).Scan(&fr.count); err != nil {
		return fmt.Errorf("scanning count: %w", err)
	}
	if fr.count == 0 {
		return ErrNoData
	}
	return nil
}

func (fr *SqliteFrameReader) initQuery(ctx context.Context) (err error) {
	fr.rows, err = fr.db.QueryContext(ctx, selectFramesSQL+fr.where+" ORDER BY timestamp, id", fr.args...)
	return
}

func (fr *SqliteFrameReader) scanFrame() (*spectrum.FrameRecord, error) {
	var (
		record   spectrum.FrameRecord
		radio    string
		seq      int64
		readings string
		labels   string
	)

	if err := fr.rows.Scan(
		&record.SessionID,
		&record.Timestamp,
		&radio,
		&seq,
		&record.Threshold,
		&record.Detected,
		&readings,
		&labels,
	); err != nil {
		return nil, fmt.Errorf("scanning frame: %w", err)
	}

	record.Radio = spectrum.Radio(radio)
	record.Seq = uint64(seq)
	if err := decodeFrame(&record, readings, labels); err != nil {
		return nil, err
	}
	return &record, nil
}

func (fr *SqliteFrameReader) Session() *spectrum.Session {
	return fr.session
}

func (fr *SqliteFrameReader) Len() int {
	return fr.count
}

func (fr *SqliteFrameReader) Next(ctx context.Context) bool {
	if fr.err != nil || fr.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		fr.err = ctx.Err()
		return false
	default:
	}

	if !fr.rows.Next() {
		fr.current = nil
		fr.err = ErrNoData
		return false
	}

	fr.current, fr.err = fr.scanFrame()
	return fr.err == nil
}

func (fr *SqliteFrameReader) Current() *spectrum.FrameRecord {
	return fr.current
}

func (fr *SqliteFrameReader) Error() error {
	if fr.err != nil && !errors.Is(fr.err, ErrNoData) {
		return fr.err
	}
	if fr.rows != nil {
		return fr.rows.Err()
	}
	return nil
}

func (fr *SqliteFrameReader) Close() error {
	if fr.rows != nil {
		err := fr.rows.Close()
		fr.current = nil
		fr.rows = nil
		return err
	}
	return nil
}
